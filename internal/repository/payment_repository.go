package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"launchpad/api/internal/models"
)

type PaymentRepository struct {
	pool *pgxpool.Pool
}

func NewPaymentRepository(pool *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

func (r *PaymentRepository) Create(ctx context.Context, payment models.Payment) error {
	const query = `
		INSERT INTO payments (
			id, user_id, payment_intent_id, amount_cents, currency, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW()
		)
	`
	_, err := r.pool.Exec(ctx, query,
		payment.ID,
		payment.UserID,
		payment.PaymentIntentID,
		payment.AmountCents,
		payment.Currency,
		payment.Status,
	)
	return err
}

func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Payment, error) {
	const query = `
		SELECT id, user_id, payment_intent_id, amount_cents, currency, status, created_at
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(
			&p.ID,
			&p.UserID,
			&p.PaymentIntentID,
			&p.AmountCents,
			&p.Currency,
			&p.Status,
			&p.CreatedAt,
		); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
