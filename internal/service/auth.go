package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/cryptox"
	"github.com/daybookhq/daybook/pkg/idx"
)

const minPasswordLength = 8

// AuthService orchestrates the layered login flow: password first, then an
// emailed one-time code, then an authenticator code. A session token is only
// minted after the final step.
type AuthService struct {
	Store    store.Store
	Codes    *EmailCodeService
	TOTP     *TOTPService
	Sessions *SessionService
}

// RegisterResult carries the new account plus its authenticator enrollment
// material. The secret is shown exactly once, here; it never leaves the
// server again.
type RegisterResult struct {
	User       domain.PublicUser
	Enrollment TOTPEnrollment
}

// LoginStepResult tells the client where it is in the flow after the email
// code check.
type LoginStepResult struct {
	UserID            string
	RequiresTwoFactor bool
}

// SessionResult is the terminal result of a completed login.
type SessionResult struct {
	Token string
	User  domain.PublicUser
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	parsed, err := mail.ParseAddress(email)
	return err == nil && parsed.Address == email
}

// Register creates a password account together with its authenticator
// secret. The email becomes the natural key in its lowercase form. The
// authenticator is not armed yet; the first verified code does that.
func (s *AuthService) Register(ctx context.Context, rawEmail, password string) (RegisterResult, error) {
	email := normalizeEmail(rawEmail)
	if !validEmail(email) {
		return RegisterResult{}, fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	if len(password) < minPasswordLength {
		return RegisterResult{}, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return RegisterResult{}, fmt.Errorf("failed to hash password: %w", err)
	}

	enrollment, err := s.TOTP.Enroll(email)
	if err != nil {
		return RegisterResult{}, err
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: &hash,
		TOTPSecret:   &enrollment.Secret,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return RegisterResult{}, ErrUserExists
		}
		return RegisterResult{}, fmt.Errorf("failed to create user: %w", err)
	}

	return RegisterResult{User: u.Public(), Enrollment: enrollment}, nil
}

// Login checks the password and, on success, emails a one-time code and
// returns the account id as a correlation handle. It never mints a session;
// the caller must continue with VerifyEmailCode. All failure modes on this
// path collapse into ErrInvalidCredentials so responses don't reveal whether
// the email is registered.
func (s *AuthService) Login(ctx context.Context, rawEmail, password string) (string, error) {
	email := normalizeEmail(rawEmail)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	if !u.HasPassword() {
		// Federated-only account; the password path is closed to it.
		return "", ErrInvalidCredentials
	}
	if err := cryptox.VerifyPassword(password, *u.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrMismatch) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to verify password: %w", err)
	}

	if err := s.Codes.Issue(ctx, email); err != nil {
		return "", err
	}
	return u.ID, nil
}

// VerifyEmailCode consumes the emailed code. On success the caller moves on
// to the authenticator step; the code check never mints a session on its
// own, even before the authenticator is armed.
func (s *AuthService) VerifyEmailCode(ctx context.Context, rawEmail, code string) (LoginStepResult, error) {
	email := normalizeEmail(rawEmail)

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return LoginStepResult{}, ErrInvalidCode
		}
		return LoginStepResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.Codes.Verify(ctx, email, code); err != nil {
		return LoginStepResult{}, err
	}

	return LoginStepResult{UserID: u.ID, RequiresTwoFactor: true}, nil
}

// VerifyTOTP checks the authenticator code and mints the session. The first
// successful check also completes enrollment, permanently.
func (s *AuthService) VerifyTOTP(ctx context.Context, userID, code string) (SessionResult, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return SessionResult{}, ErrInvalidTOTP
		}
		return SessionResult{}, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := s.TOTP.Verify(u, code); err != nil {
		return SessionResult{}, err
	}

	if !u.TwoFactorEnabled {
		if err := s.Store.Users().EnableTwoFactor(ctx, u.ID); err != nil {
			return SessionResult{}, fmt.Errorf("failed to enable two factor: %w", err)
		}
	}

	token, err := s.Sessions.Mint(u)
	if err != nil {
		return SessionResult{}, err
	}
	return SessionResult{Token: token, User: u.Public()}, nil
}
