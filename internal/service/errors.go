package service

import "errors"

// Failure taxonomy shared by every flow. Specific conditions wrap one of
// these with fmt.Errorf("%w: ...") so callers classify with errors.Is.
// Store and crypto failures are never wrapped in them.
var (
	ErrBadRequest         = errors.New("bad request")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidCode        = errors.New("invalid otp")
	ErrExpired            = errors.New("expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
)
