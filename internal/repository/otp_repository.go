package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"launchpad/api/internal/models"
)

type OTPRepository struct {
	pool *pgxpool.Pool
}

func NewOTPRepository(pool *pgxpool.Pool) *OTPRepository {
	return &OTPRepository{pool: pool}
}

func (r *OTPRepository) FindByUserAndCode(ctx context.Context, userID string, code string) (models.OTP, error) {
	const query = `
		SELECT id, user_id, code, expires_at, created_at, updated_at
		FROM otps
		WHERE user_id = $1 AND code = $2
	`
	return scanOTP(r.pool.QueryRow(ctx, query, userID, code))
}

// Upsert stores the user's single pending code, replacing any earlier one.
// The id of an existing row is kept.
func (r *OTPRepository) Upsert(ctx context.Context, otp models.OTP) error {
	const query = `
		INSERT INTO otps (id, user_id, code, expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE
		SET code = EXCLUDED.code,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
	`
	_, err := r.pool.Exec(ctx, query, otp.ID, otp.UserID, otp.Code, otp.ExpiresAt)
	return err
}

func (r *OTPRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrOTPNotFound
	}
	return nil
}

func (r *OTPRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM otps WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanOTP(row pgx.Row) (models.OTP, error) {
	var otp models.OTP
	if err := row.Scan(
		&otp.ID,
		&otp.UserID,
		&otp.Code,
		&otp.ExpiresAt,
		&otp.CreatedAt,
		&otp.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.OTP{}, ErrOTPNotFound
		}
		return models.OTP{}, err
	}
	return otp, nil
}
