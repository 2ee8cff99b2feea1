package service

import (
	"fmt"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/pkg/jwtx"
)

// SessionService mints stateless session tokens once the full login flow
// has completed. The paired verifier lives in the HTTP middleware.
type SessionService struct {
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultSessionTTL
}

// Mint issues a session token for the user.
func (s *SessionService) Mint(u domain.User) (string, error) {
	claims := jwtx.NewSessionClaims(u.ID, u.Email, s.Issuer, s.ttl(), time.Now())
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, nil
}
