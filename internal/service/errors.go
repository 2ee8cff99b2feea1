package service

import "errors"

// Sentinel errors shared across the services. The HTTP layer maps these to
// status codes with errors.Is so wrapped context survives logging.
var (
	// ErrInvalidCredentials covers unknown email, wrong password, and
	// federated-only accounts on the password path. One error for all
	// three so responses don't leak which part failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrUserExists    = errors.New("user already exists")
	ErrInvalidCode   = errors.New("invalid verification code")
	ErrCodeExpired   = errors.New("verification code expired")
	ErrInvalidTOTP   = errors.New("invalid authenticator code")
	ErrNotFound      = errors.New("not found")
	ErrValidation    = errors.New("validation failed")
	ErrEmailDelivery = errors.New("could not deliver verification email")
)
