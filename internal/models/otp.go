package models

import "time"

// OTP is a single-use verification code. At most one row per user is kept
// live; a new request overwrites the previous code in place.
type OTP struct {
	ID        string
	UserID    string
	Code      string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o OTP) Expired(now time.Time) bool {
	return now.After(o.ExpiresAt)
}
