package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"launchpad/api/internal/models"
	"launchpad/api/internal/payments"
	"launchpad/api/internal/repository"
	"launchpad/api/internal/security"
	"launchpad/api/internal/storage"
)

type memUsers struct {
	mu    sync.Mutex
	byID  map[string]models.User
	clock time.Time
	err   error
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]models.User{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memUsers) Create(_ context.Context, user models.User) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.User{}, m.err
	}
	for _, u := range m.byID {
		if u.Email == user.Email {
			return models.User{}, repository.ErrEmailTaken
		}
	}
	m.clock = m.clock.Add(time.Second)
	user.CreatedAt = m.clock
	user.UpdatedAt = m.clock
	m.byID[user.ID] = user
	return user, nil
}

func (m *memUsers) FindByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.User{}, m.err
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (m *memUsers) GetByID(_ context.Context, id string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.User{}, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *memUsers) UpdateProfile(_ context.Context, id string, changes repository.ProfileChanges) (models.User, error) {
	return m.mutate(id, func(u *models.User) error {
		if changes.Email != nil {
			for otherID, other := range m.byID {
				if otherID != id && other.Email == *changes.Email {
					return repository.ErrEmailTaken
				}
			}
			u.Email = *changes.Email
		}
		if changes.Name != nil {
			u.Name = *changes.Name
		}
		if changes.PhoneNumber != nil {
			u.PhoneNumber = changes.PhoneNumber
		}
		if changes.ProfileImage != nil {
			u.ProfileImage = changes.ProfileImage
		}
		return nil
	})
}

func (m *memUsers) AdminUpdate(_ context.Context, id string, changes repository.AdminChanges) (models.User, error) {
	return m.mutate(id, func(u *models.User) error {
		if changes.Name != nil {
			u.Name = *changes.Name
		}
		if changes.Role != nil {
			u.Role = *changes.Role
		}
		if changes.Status != nil {
			u.Status = *changes.Status
		}
		if changes.NeedsPasswordChange != nil {
			u.NeedsPasswordChange = *changes.NeedsPasswordChange
		}
		return nil
	})
}

func (m *memUsers) UpdatePassword(_ context.Context, id string, hash []byte) error {
	_, err := m.mutate(id, func(u *models.User) error {
		u.PasswordHash = hash
		u.NeedsPasswordChange = false
		return nil
	})
	return err
}

func (m *memUsers) MarkVerified(_ context.Context, id string) error {
	_, err := m.mutate(id, func(u *models.User) error {
		u.IsVerified = true
		return nil
	})
	return err
}

// mutate applies fn to the stored row under the lock, like a single
// UPDATE statement.
func (m *memUsers) mutate(id string, fn func(*models.User) error) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return models.User{}, m.err
	}
	u, ok := m.byID[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	if err := fn(&u); err != nil {
		return models.User{}, err
	}
	m.clock = m.clock.Add(time.Second)
	u.UpdatedAt = m.clock
	m.byID[id] = u
	return u, nil
}

func (m *memUsers) List(_ context.Context, limit, offset int) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.User, 0, len(m.byID))
	for _, u := range m.byID {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

func (m *memUsers) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID), nil
}

func (m *memUsers) SetCustomerID(_ context.Context, id string, customerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.CustomerID = &customerID
	m.byID[id] = u
	return nil
}

type memOTPs struct {
	mu    sync.Mutex
	rows  []models.OTP
	clock time.Time
	err   error
}

func newMemOTPs() *memOTPs {
	return &memOTPs{clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (m *memOTPs) FindByUserAndCode(_ context.Context, userID string, code string) (models.OTP, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.UserID == userID && row.Code == code {
			return row, nil
		}
	}
	return models.OTP{}, repository.ErrOTPNotFound
}

func (m *memOTPs) Upsert(_ context.Context, otp models.OTP) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.clock = m.clock.Add(time.Second)
	for i := range m.rows {
		if m.rows[i].UserID == otp.UserID {
			m.rows[i].Code = otp.Code
			m.rows[i].ExpiresAt = otp.ExpiresAt
			m.rows[i].UpdatedAt = m.clock
			return nil
		}
	}
	otp.CreatedAt = m.clock
	otp.UpdatedAt = m.clock
	m.rows = append(m.rows, otp)
	return nil
}

func (m *memOTPs) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return nil
		}
	}
	return repository.ErrOTPNotFound
}

func (m *memOTPs) forUser(userID string) []models.OTP {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OTP
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out
}

type sentMail struct {
	To, Subject, Body string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (r *recordingMailer) Send(to, subject, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (r *recordingMailer) last() sentMail {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return sentMail{}
	}
	return r.sent[len(r.sent)-1]
}

type memObjects struct {
	mu        sync.Mutex
	objects   map[string][]byte
	opts      map[string]storage.PutOptions
	failOn    string
	removeErr error
	removed   []string
}

func newMemObjects() *memObjects {
	return &memObjects{objects: map[string][]byte{}, opts: map[string]storage.PutOptions{}}
}

func (m *memObjects) Put(_ context.Context, key string, r io.Reader, size int64, opts storage.PutOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOn != "" && strings.Contains(key, m.failOn) {
		return "", errors.New("bucket unavailable")
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return "", err
	}
	if int64(buf.Len()) != size {
		return "", errors.New("size mismatch")
	}
	m.objects[key] = buf.Bytes()
	m.opts[key] = opts
	return memObjectsBase + key, nil
}

const memObjectsBase = "https://media.example.com/"

func (m *memObjects) KeyFromURL(raw string) (string, error) {
	key, ok := strings.CutPrefix(raw, memObjectsBase)
	if !ok || key == "" {
		return "", errors.New("object url does not belong to this bucket")
	}
	return key, nil
}

func (m *memObjects) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.removeErr != nil {
		return m.removeErr
	}
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

type fakeGateway struct {
	customers     int
	attachErr     error
	attached      []string
	intentInput   payments.IntentInput
	confirmedWith string
	confirmErr    error
}

func (f *fakeGateway) CreateCustomer(_ context.Context, metadata map[string]string) (string, error) {
	f.customers++
	return "cus_" + metadata["userId"], nil
}

func (f *fakeGateway) AttachPaymentMethod(_ context.Context, paymentMethodID, customerID string) error {
	f.attached = append(f.attached, paymentMethodID+"@"+customerID)
	return f.attachErr
}

func (f *fakeGateway) CreatePaymentIntent(_ context.Context, input payments.IntentInput) (payments.Intent, error) {
	f.intentInput = input
	return payments.Intent{ID: "pi_1", Status: "requires_confirmation", Amount: input.AmountCents}, nil
}

func (f *fakeGateway) ConfirmPaymentIntent(_ context.Context, intentID, paymentMethodID string) (payments.Intent, error) {
	if f.confirmErr != nil {
		return payments.Intent{}, f.confirmErr
	}
	f.confirmedWith = paymentMethodID
	return payments.Intent{ID: intentID, Status: "succeeded", Amount: f.intentInput.AmountCents}, nil
}

type memPayments struct {
	rows []models.Payment
	err  error
}

func (m *memPayments) Create(_ context.Context, payment models.Payment) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, payment)
	return nil
}

func (m *memPayments) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	var out []models.Payment
	for _, p := range m.rows {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

const (
	sessionSecret = "session-secret"
	resetSecret   = "reset-secret"
)

type authFixture struct {
	users    *memUsers
	otps     *memOTPs
	mailer   *recordingMailer
	hasher   *security.PasswordHasher
	sessions *security.TokenManager
	resets   *security.TokenManager
	otp      *OTPService
	auth     *AuthService
}

func newAuthFixture(t *testing.T, requireVerified bool) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    newMemUsers(),
		otps:     newMemOTPs(),
		mailer:   &recordingMailer{},
		hasher:   security.NewPasswordHasher(bcrypt.MinCost),
		sessions: security.NewTokenManager(sessionSecret, time.Hour),
		resets:   security.NewTokenManager(resetSecret, 15*time.Minute),
	}
	f.otp = NewOTPService(f.users, f.otps, f.mailer, 5*time.Minute, zerolog.Nop())
	f.auth = NewAuthService(f.users, f.otp, f.hasher, f.sessions, f.resets, f.mailer, AuthOptions{
		RequireVerified:   requireVerified,
		ResetPasswordLink: "https://app.example.com/reset-password",
	}, zerolog.Nop())
	return f
}

func (f *authFixture) seedUser(t *testing.T, email, password string, verified bool) models.User {
	t.Helper()
	hash, err := f.hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := f.users.Create(context.Background(), models.User{
		ID:           "id-" + email,
		Name:         "Test",
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
		IsVerified:   verified,
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}
