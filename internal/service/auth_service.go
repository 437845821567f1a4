package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"launchpad/api/internal/ids"
	"launchpad/api/internal/models"
	"launchpad/api/internal/repository"
	"launchpad/api/internal/security"
)

// AuthOptions holds the credential settings injected at construction.
type AuthOptions struct {
	RequireVerified   bool
	ResetPasswordLink string
}

// AuthService sequences the credential lifecycle: login, OTP gated
// registration, change password, and token-link password reset.
//
// Changing or resetting a password does not revoke outstanding session
// tokens; they stay valid until they expire.
type AuthService struct {
	users    UserStore
	otp      *OTPService
	hasher   *security.PasswordHasher
	sessions *security.TokenManager
	resets   *security.TokenManager
	mailer   Mailer
	opts     AuthOptions
	log      zerolog.Logger
}

func NewAuthService(
	users UserStore,
	otp *OTPService,
	hasher *security.PasswordHasher,
	sessions *security.TokenManager,
	resets *security.TokenManager,
	mailer Mailer,
	opts AuthOptions,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		otp:      otp,
		hasher:   hasher,
		sessions: sessions,
		resets:   resets,
		mailer:   mailer,
		opts:     opts,
		log:      log,
	}
}

type AuthResult struct {
	Token string
	User  models.User
}

type LoginInput struct {
	Email    string
	Password string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	user, err := s.users.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, fmt.Errorf("%w: user with email %s", ErrNotFound, input.Email)
		}
		return AuthResult{}, fmt.Errorf("find user: %w", err)
	}

	if s.opts.RequireVerified && !user.IsVerified {
		return AuthResult{}, fmt.Errorf("%w: account is not verified", ErrUnauthorized)
	}

	if !s.hasher.Compare(input.Password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	if user.Status == models.UserStatusBlocked {
		return AuthResult{}, fmt.Errorf("%w: account is blocked", ErrForbidden)
	}

	return s.issueSession(user)
}

type RegisterInput struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// Register stores an unverified account. The caller sends an OTP and
// completes registration with VerifyOTPAndRegister. The two steps are not
// atomic; an account that never verifies stays unverified.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (models.User, error) {
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		return models.User{}, fmt.Errorf("%w: email and password are required", ErrBadRequest)
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return models.User{}, fmt.Errorf("%w: user with this email %s already exists", ErrConflict, input.Email)
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return models.User{}, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return models.User{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
		Status:       models.UserStatusActive,
	}
	if input.PhoneNumber != "" {
		phone := input.PhoneNumber
		user.PhoneNumber = &phone
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, fmt.Errorf("%w: user with this email %s already exists", ErrConflict, input.Email)
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}

	s.log.Info().Str("user_id", created.ID).Msg("user registered")
	return created, nil
}

func (s *AuthService) SendOTP(ctx context.Context, email string) (string, error) {
	return s.otp.Send(ctx, email)
}

// VerifyOTPAndRegister consumes the code, marks the account verified, and
// opens a session.
func (s *AuthService) VerifyOTPAndRegister(ctx context.Context, email, code string) (AuthResult, error) {
	user, err := s.otp.Verify(ctx, email, code)
	if err != nil {
		return AuthResult{}, err
	}

	if !user.IsVerified {
		if err := s.users.MarkVerified(ctx, user.ID); err != nil {
			return AuthResult{}, fmt.Errorf("mark verified: %w", err)
		}
		user.IsVerified = true
	}

	s.log.Info().Str("user_id", user.ID).Msg("user verified")
	return s.issueSession(user)
}

// Authenticate resolves a session token to its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (models.User, *security.Claims, error) {
	claims, err := s.sessions.Verify(token)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("%w: invalid token", ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, nil, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return models.User{}, nil, fmt.Errorf("find user: %w", err)
	}
	return user, claims, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, token, oldPassword, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", ErrBadRequest)
	}

	user, _, err := s.Authenticate(ctx, token)
	if err != nil {
		return err
	}

	if !s.hasher.Compare(oldPassword, user.PasswordHash) {
		return fmt.Errorf("%w: incorrect old password", ErrInvalidCredentials)
	}

	return s.storePassword(ctx, user, newPassword)
}

// ForgotPassword emails a link carrying a reset-scoped token. The token is
// signed with the reset secret and is useless as a session token.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user with email %s", ErrNotFound, email)
		}
		return fmt.Errorf("find user: %w", err)
	}

	token, err := s.resets.Issue(identityOf(user))
	if err != nil {
		return err
	}

	link, err := resetLink(s.opts.ResetPasswordLink, user.ID, token)
	if err != nil {
		return err
	}

	if err := s.mailer.Send(user.Email, "Reset Your Password", resetBody(user.Name, link)); err != nil {
		return fmt.Errorf("deliver reset link: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password reset link sent")
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", ErrBadRequest)
	}

	claims, err := s.resets.Verify(token)
	if err != nil {
		return fmt.Errorf("%w: invalid reset token", ErrUnauthorized)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return fmt.Errorf("find user: %w", err)
	}

	return s.storePassword(ctx, user, newPassword)
}

func (s *AuthService) Profile(ctx context.Context, userID string) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%w: user not found", ErrNotFound)
		}
		return models.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *AuthService) storePassword(ctx context.Context, user models.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("store password: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("password updated")
	return nil
}

func (s *AuthService) issueSession(user models.User) (AuthResult, error) {
	token, err := s.sessions.Issue(identityOf(user))
	if err != nil {
		return AuthResult{}, err
	}
	return AuthResult{Token: token, User: user}, nil
}

func identityOf(user models.User) security.Identity {
	return security.Identity{
		UserID: user.ID,
		Email:  user.Email,
		Role:   string(user.Role),
	}
}

func resetLink(base, userID, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse reset link: %w", err)
	}
	q := u.Query()
	q.Set("userId", userID)
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func resetBody(name, link string) string {
	greeting := "Hello"
	if name != "" {
		greeting = "Dear " + name
	}
	return fmt.Sprintf("%s,\n\nWe received a request to reset your password. Open the link below to choose a new one:\n\n%s\n\nIf you did not request a password reset, please ignore this email or contact support.\n\nThank you\n",
		greeting, link)
}
