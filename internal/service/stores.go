package service

import (
	"context"
	"io"

	"launchpad/api/internal/models"
	"launchpad/api/internal/payments"
	"launchpad/api/internal/repository"
	"launchpad/api/internal/storage"
)

// UserStore is the user half of the credential store.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdateProfile(ctx context.Context, id string, changes repository.ProfileChanges) (models.User, error)
	AdminUpdate(ctx context.Context, id string, changes repository.AdminChanges) (models.User, error)
	UpdatePassword(ctx context.Context, id string, hash []byte) error
	MarkVerified(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]models.User, error)
	Count(ctx context.Context) (int, error)
	SetCustomerID(ctx context.Context, id string, customerID string) error
}

// OTPStore keeps at most one code per user.
type OTPStore interface {
	Upsert(ctx context.Context, otp models.OTP) error
	FindByUserAndCode(ctx context.Context, userID string, code string) (models.OTP, error)
	Delete(ctx context.Context, id string) error
}

type PaymentStore interface {
	Create(ctx context.Context, payment models.Payment) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error)
}

// Mailer delivers one message. Failures are reported, never retried.
type Mailer interface {
	Send(to, subject, body string) error
}

type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) (string, error)
	Remove(ctx context.Context, key string) error
	KeyFromURL(raw string) (string, error)
}

type PaymentGateway interface {
	CreateCustomer(ctx context.Context, metadata map[string]string) (string, error)
	AttachPaymentMethod(ctx context.Context, paymentMethodID, customerID string) error
	CreatePaymentIntent(ctx context.Context, input payments.IntentInput) (payments.Intent, error)
	ConfirmPaymentIntent(ctx context.Context, intentID, paymentMethodID string) (payments.Intent, error)
}
