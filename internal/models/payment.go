package models

import "time"

type Payment struct {
	ID              string
	UserID          string
	PaymentIntentID string
	AmountCents     int64
	Currency        string
	Status          string
	CreatedAt       time.Time
}
