package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchpad/api/internal/models"
)

const userColumns = `
	id, name, email, password_hash, role, status, is_verified, needs_password_change,
	phone_number, profile_image, customer_id, created_at, updated_at
`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) (models.User, error) {
	const query = `
		INSERT INTO users (
			id, name, email, password_hash, role, status, is_verified, needs_password_change,
			phone_number, profile_image, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW()
		)
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		user.ID,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Role,
		user.Status,
		user.IsVerified,
		user.NeedsPasswordChange,
		user.PhoneNumber,
		user.ProfileImage,
	)
	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return created, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// ProfileChanges holds the self-service profile columns. Nil fields keep
// their stored value.
type ProfileChanges struct {
	Name         *string
	Email        *string
	PhoneNumber  *string
	ProfileImage *string
}

// UpdateProfile writes only the profile columns so it cannot clobber a
// concurrent password, verification or status change.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, changes ProfileChanges) (models.User, error) {
	const query = `
		UPDATE users
		SET name = COALESCE($2, name),
		    email = COALESCE($3, email),
		    phone_number = COALESCE($4, phone_number),
		    profile_image = COALESCE($5, profile_image),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	row := r.pool.QueryRow(ctx, query,
		id,
		changes.Name,
		changes.Email,
		changes.PhoneNumber,
		changes.ProfileImage,
	)
	updated, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return updated, nil
}

// AdminChanges holds the columns an administrator may edit. Nil fields keep
// their stored value.
type AdminChanges struct {
	Name                *string
	Role                *models.UserRole
	Status              *models.UserStatus
	NeedsPasswordChange *bool
}

func (r *UserRepository) AdminUpdate(ctx context.Context, id string, changes AdminChanges) (models.User, error) {
	const query = `
		UPDATE users
		SET name = COALESCE($2, name),
		    role = COALESCE($3, role),
		    status = COALESCE($4, status),
		    needs_password_change = COALESCE($5, needs_password_change),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	return scanUser(r.pool.QueryRow(ctx, query,
		id,
		changes.Name,
		changes.Role,
		changes.Status,
		changes.NeedsPasswordChange,
	))
}

// UpdatePassword stores a new hash and clears the forced-change flag.
func (r *UserRepository) UpdatePassword(ctx context.Context, id string, hash []byte) error {
	const query = `
		UPDATE users
		SET password_hash = $2, needs_password_change = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	return r.execOne(ctx, query, id, hash)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id string) error {
	const query = `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id)
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *UserRepository) SetCustomerID(ctx context.Context, id string, customerID string) error {
	const query = `UPDATE users SET customer_id = $2, updated_at = NOW() WHERE id = $1`
	return r.execOne(ctx, query, id, customerID)
}

func (r *UserRepository) execOne(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.IsVerified,
		&user.NeedsPasswordChange,
		&user.PhoneNumber,
		&user.ProfileImage,
		&user.CustomerID,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
