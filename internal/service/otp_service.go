package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"launchpad/api/internal/ids"
	"launchpad/api/internal/models"
	"launchpad/api/internal/repository"
	"launchpad/api/internal/security"
)

const otpSubject = "Your verification code"

// OTPService issues and consumes single-use email codes. A user holds at
// most one live code: sending again overwrites the previous code, so a
// code that was already delivered stops verifying once a newer one is
// requested.
type OTPService struct {
	users    UserStore
	otps     OTPStore
	mailer   Mailer
	ttl      time.Duration
	log      zerolog.Logger
	now      func() time.Time
	generate func() (string, error)
}

func NewOTPService(users UserStore, otps OTPStore, mailer Mailer, ttl time.Duration, log zerolog.Logger) *OTPService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &OTPService{
		users:    users,
		otps:     otps,
		mailer:   mailer,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		generate: security.GenerateOTP,
	}
}

// Send delivers a fresh code to the user and returns it.
func (s *OTPService) Send(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return "", fmt.Errorf("%w: user with email %s", ErrNotFound, email)
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	code, err := s.generate()
	if err != nil {
		return "", err
	}
	expiresAt := s.now().Add(s.ttl)

	if err := s.otps.Upsert(ctx, models.OTP{
		ID:        ids.New(),
		UserID:    user.ID,
		Code:      code,
		ExpiresAt: expiresAt,
	}); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	if err := s.mailer.Send(user.Email, otpSubject, otpBody(user.Name, code, s.ttl)); err != nil {
		return "", fmt.Errorf("deliver otp: %w", err)
	}

	s.log.Debug().Str("user_id", user.ID).Time("expires_at", expiresAt).Msg("otp issued")
	return code, nil
}

// Verify consumes code. The record is deleted only after it matched and was
// still live; wrong or expired codes leave the store untouched.
func (s *OTPService) Verify(ctx context.Context, email, code string) (models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: user with email %s", ErrNotFound, email)
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	otp, err := s.otps.FindByUserAndCode(ctx, user.ID, code)
	if err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			return models.User{}, ErrInvalidCode
		}
		return models.User{}, fmt.Errorf("find otp: %w", err)
	}

	if otp.Expired(s.now()) {
		return models.User{}, fmt.Errorf("%w: otp", ErrExpired)
	}

	if err := s.otps.Delete(ctx, otp.ID); err != nil {
		if errors.Is(err, repository.ErrOTPNotFound) {
			// consumed concurrently
			return models.User{}, ErrInvalidCode
		}
		return models.User{}, fmt.Errorf("delete otp: %w", err)
	}

	return user, nil
}

func otpBody(name, code string, ttl time.Duration) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Dear " + name
	}
	return fmt.Sprintf("%s,\n\nYour verification code is %s. It expires in %d minutes.\n\nIf you did not request this code, you can ignore this email.\n",
		greeting, code, int(ttl.Minutes()))
}
