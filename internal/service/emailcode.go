package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/email"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/cryptox"
)

// DefaultCodeTTL is how long an emailed one-time code stays valid.
const DefaultCodeTTL = 2 * time.Minute

const codeDigits = 6

// EmailCodeService issues and verifies emailed one-time login codes.
// Codes is pluggable: the sqlite table for single-node deployments, Redis
// when instances share a cache.
type EmailCodeService struct {
	Codes  store.EmailCodes
	Sender email.Sender
	TTL    time.Duration

	// Now is the clock, overridable in tests. Nil means time.Now.
	Now func() time.Time
}

func (s *EmailCodeService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *EmailCodeService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultCodeTTL
}

// Issue generates a fresh code for the email, stores it (replacing any prior
// unconsumed code for the same address), and delivers it. Delivery failure
// aborts the whole step so the caller can fail the login instead of leaving
// the user waiting for mail that never arrives.
func (s *EmailCodeService) Issue(ctx context.Context, toEmail string) error {
	code, err := cryptox.GenerateNumericCode(codeDigits)
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	now := s.now()
	ec := domain.EmailCode{
		Email:     toEmail,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl()),
	}
	if err := s.Codes.Put(ctx, ec); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	subject, body, err := email.RenderVerificationCode(code, "2 minutes")
	if err != nil {
		return fmt.Errorf("failed to render code email: %w", err)
	}
	if err := s.Sender.Send(ctx, toEmail, subject, body); err != nil {
		// Best effort invalidation; the code is useless if mail never went out.
		_ = s.Codes.Delete(ctx, toEmail)
		return errors.Join(ErrEmailDelivery, err)
	}

	return nil
}

// Verify checks the submitted code. A correct code is consumed on first use.
// Expired codes are removed lazily here, so both backing stores stay dumb
// about expiry semantics.
func (s *EmailCodeService) Verify(ctx context.Context, toEmail, submitted string) error {
	ec, err := s.Codes.Get(ctx, toEmail)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCode
		}
		return fmt.Errorf("failed to load code: %w", err)
	}

	if ec.Expired(s.now()) {
		_ = s.Codes.Delete(ctx, toEmail)
		return ErrCodeExpired
	}

	if ec.Code != submitted {
		return ErrInvalidCode
	}

	// Single use
	if err := s.Codes.Delete(ctx, toEmail); err != nil {
		return fmt.Errorf("failed to consume code: %w", err)
	}
	return nil
}
