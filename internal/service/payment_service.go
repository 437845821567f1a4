package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"launchpad/api/internal/ids"
	"launchpad/api/internal/models"
	"launchpad/api/internal/payments"
	"launchpad/api/internal/repository"
)

type PaymentService struct {
	users    UserStore
	payments PaymentStore
	gateway  PaymentGateway
	currency string
	log      zerolog.Logger
}

func NewPaymentService(users UserStore, payments PaymentStore, gateway PaymentGateway, currency string, log zerolog.Logger) *PaymentService {
	if currency == "" {
		currency = "usd"
	}
	return &PaymentService{
		users:    users,
		payments: payments,
		gateway:  gateway,
		currency: strings.ToLower(currency),
		log:      log,
	}
}

type OneTimePaymentInput struct {
	UserID        string
	Amount        float64
	PaymentMethod string
}

type PaymentResult struct {
	PaymentIntentID string
	Status          string
	AmountCents     int64
	Currency        string
}

// OneTimePayment charges amount (in major currency units) to the user's
// payment method, reusing the user's gateway customer when one exists.
func (s *PaymentService) OneTimePayment(ctx context.Context, input OneTimePaymentInput) (PaymentResult, error) {
	if input.PaymentMethod == "" {
		return PaymentResult{}, fmt.Errorf("%w: payment method is required", ErrBadRequest)
	}
	cents := int64(math.Round(input.Amount * 100))
	if cents <= 0 {
		return PaymentResult{}, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}

	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return PaymentResult{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return PaymentResult{}, fmt.Errorf("find user: %w", err)
	}

	customerID, err := s.ensureCustomer(ctx, user)
	if err != nil {
		return PaymentResult{}, err
	}

	if err := s.gateway.AttachPaymentMethod(ctx, input.PaymentMethod, customerID); err != nil && !errors.Is(err, payments.ErrAlreadyAttached) {
		return PaymentResult{}, err
	}

	metadata := map[string]string{"userId": user.ID}
	intent, err := s.gateway.CreatePaymentIntent(ctx, payments.IntentInput{
		AmountCents: cents,
		Currency:    s.currency,
		CustomerID:  customerID,
		Metadata:    metadata,
	})
	if err != nil {
		return PaymentResult{}, err
	}

	confirmed, err := s.gateway.ConfirmPaymentIntent(ctx, intent.ID, input.PaymentMethod)
	if err != nil {
		return PaymentResult{}, err
	}

	if err := s.payments.Create(ctx, models.Payment{
		ID:              ids.New(),
		UserID:          user.ID,
		PaymentIntentID: confirmed.ID,
		AmountCents:     cents,
		Currency:        s.currency,
		Status:          confirmed.Status,
	}); err != nil {
		// the charge went through; keep the result and flag the gap
		s.log.Error().Err(err).Str("user_id", user.ID).Str("payment_intent", confirmed.ID).Msg("record payment failed")
	}

	s.log.Info().Str("user_id", user.ID).Str("payment_intent", confirmed.ID).Str("status", confirmed.Status).Msg("one-time payment confirmed")
	return PaymentResult{
		PaymentIntentID: confirmed.ID,
		Status:          confirmed.Status,
		AmountCents:     cents,
		Currency:        s.currency,
	}, nil
}

func (s *PaymentService) History(ctx context.Context, userID string, page, limit int) ([]models.Payment, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	list, err := s.payments.ListByUser(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return list, nil
}

func (s *PaymentService) ensureCustomer(ctx context.Context, user models.User) (string, error) {
	if user.CustomerID != nil && *user.CustomerID != "" {
		return *user.CustomerID, nil
	}

	customerID, err := s.gateway.CreateCustomer(ctx, map[string]string{"userId": user.ID})
	if err != nil {
		return "", err
	}
	if err := s.users.SetCustomerID(ctx, user.ID, customerID); err != nil {
		return "", fmt.Errorf("store customer id: %w", err)
	}
	return customerID, nil
}
