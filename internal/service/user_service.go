package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"launchpad/api/internal/ids"
	"launchpad/api/internal/models"
	"launchpad/api/internal/repository"
	"launchpad/api/internal/security"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

type UserService struct {
	users  UserStore
	hasher *security.PasswordHasher
	log    zerolog.Logger
}

func NewUserService(users UserStore, hasher *security.PasswordHasher, log zerolog.Logger) *UserService {
	return &UserService{users: users, hasher: hasher, log: log}
}

type PageMeta struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

type UserPage struct {
	Meta  PageMeta
	Users []models.User
}

// List returns users newest first.
func (s *UserService) List(ctx context.Context, page, limit int) (UserPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	total, err := s.users.Count(ctx)
	if err != nil {
		return UserPage{}, fmt.Errorf("count users: %w", err)
	}

	users, err := s.users.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return UserPage{}, fmt.Errorf("list users: %w", err)
	}

	return UserPage{
		Meta:  PageMeta{Page: page, Limit: limit, Total: total},
		Users: users,
	}, nil
}

type ProfileInput struct {
	Name         string
	Email        string
	PhoneNumber  string
	ProfileImage string
}

// UpdateProfile applies the non-empty fields of input to the caller's own
// record. Only profile columns are written.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input ProfileInput) (models.User, error) {
	updated, err := s.users.UpdateProfile(ctx, userID, repository.ProfileChanges{
		Name:         nonEmpty(input.Name),
		Email:        nonEmpty(input.Email),
		PhoneNumber:  nonEmpty(input.PhoneNumber),
		ProfileImage: nonEmpty(input.ProfileImage),
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return models.User{}, fmt.Errorf("%w: email %s is already in use", ErrConflict, input.Email)
		}
		return models.User{}, s.lookupError(userID, err)
	}
	return updated, nil
}

type AdminUpdateInput struct {
	Name                *string
	Role                *models.UserRole
	Status              *models.UserStatus
	NeedsPasswordChange *bool
}

func (s *UserService) AdminUpdate(ctx context.Context, id string, input AdminUpdateInput) (models.User, error) {
	if input.Role != nil && !input.Role.Valid() {
		return models.User{}, fmt.Errorf("%w: unknown role %q", ErrBadRequest, *input.Role)
	}
	if input.Status != nil && !input.Status.Valid() {
		return models.User{}, fmt.Errorf("%w: unknown status %q", ErrBadRequest, *input.Status)
	}

	updated, err := s.users.AdminUpdate(ctx, id, repository.AdminChanges{
		Name:                input.Name,
		Role:                input.Role,
		Status:              input.Status,
		NeedsPasswordChange: input.NeedsPasswordChange,
	})
	if err != nil {
		return models.User{}, s.lookupError(id, err)
	}
	s.log.Info().Str("user_id", id).Str("role", string(updated.Role)).Str("status", string(updated.Status)).Msg("user updated by admin")
	return updated, nil
}

type SeedInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
}

// SeedSuperAdmin creates the bootstrap super admin unless the email is
// already registered. It reports whether an account was created.
func (s *UserService) SeedSuperAdmin(ctx context.Context, input SeedInput) (bool, error) {
	if input.Email == "" || input.Password == "" {
		return false, nil
	}

	if _, err := s.users.FindByEmail(ctx, input.Email); err == nil {
		return false, nil
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return false, fmt.Errorf("find user: %w", err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return false, err
	}

	admin := models.User{
		ID:           ids.New(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         models.UserRoleSuperAdmin,
		Status:       models.UserStatusActive,
		IsVerified:   true,
	}
	if input.Phone != "" {
		phone := input.Phone
		admin.PhoneNumber = &phone
	}

	if _, err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return false, nil
		}
		return false, fmt.Errorf("create super admin: %w", err)
	}

	s.log.Info().Str("email", input.Email).Msg("super admin seeded")
	return true, nil
}

func (s *UserService) lookupError(id string, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("%w: user not found with id %s", ErrNotFound, id)
	}
	return fmt.Errorf("update user: %w", err)
}

func nonEmpty(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
