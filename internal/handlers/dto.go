package handlers

import (
	"time"

	"launchpad/api/internal/models"
)

type userResponse struct {
	ID                  string    `json:"id"`
	Name                string    `json:"name"`
	Email               string    `json:"email"`
	Role                string    `json:"role"`
	Status              string    `json:"status"`
	IsVerified          bool      `json:"isVerified"`
	NeedsPasswordChange bool      `json:"needsPasswordChange"`
	PhoneNumber         *string   `json:"phoneNumber"`
	ProfileImage        *string   `json:"profileImage"`
	CreatedAt           time.Time `json:"createdAt"`
	UpdatedAt           time.Time `json:"updatedAt"`
}

// toUserResponse never exposes the password hash or the payment customer id.
func toUserResponse(u models.User) userResponse {
	return userResponse{
		ID:                  u.ID,
		Name:                u.Name,
		Email:               u.Email,
		Role:                string(u.Role),
		Status:              string(u.Status),
		IsVerified:          u.IsVerified,
		NeedsPasswordChange: u.NeedsPasswordChange,
		PhoneNumber:         u.PhoneNumber,
		ProfileImage:        u.ProfileImage,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.UpdatedAt,
	}
}

type authResponse struct {
	AccessToken string       `json:"accessToken"`
	User        userResponse `json:"user"`
}

type paymentResponse struct {
	ID              string    `json:"id"`
	PaymentIntentID string    `json:"paymentIntentId"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
}

func toPaymentResponse(p models.Payment) paymentResponse {
	return paymentResponse{
		ID:              p.ID,
		PaymentIntentID: p.PaymentIntentID,
		Amount:          float64(p.AmountCents) / 100,
		Currency:        p.Currency,
		Status:          p.Status,
		CreatedAt:       p.CreatedAt,
	}
}
