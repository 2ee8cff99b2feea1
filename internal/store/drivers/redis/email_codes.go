// Package redis provides a Redis-backed one-time code store for deployments
// that run more than one app instance against a shared cache.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/store"
)

const emailCodeKeyPrefix = "emailcode"

// expiredGrace keeps a code readable a little past its window so callers can
// tell "expired" apart from "never issued". The orchestration layer checks
// ExpiresAt itself and never honors a code inside the grace period.
const expiredGrace = 5 * time.Minute

type EmailCodes struct {
	rdb *redis.Client
}

func NewEmailCodes(rdb *redis.Client) *EmailCodes {
	return &EmailCodes{rdb: rdb}
}

func key(email string) string {
	return emailCodeKeyPrefix + ":" + email
}

type codeRecord struct {
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Put replaces any prior code for the email in a single SET, so at most one
// code is ever live per address.
func (s *EmailCodes) Put(ctx context.Context, code domain.EmailCode) error {
	payload, err := json.Marshal(codeRecord{
		Code:      code.Code,
		IssuedAt:  code.IssuedAt,
		ExpiresAt: code.ExpiresAt,
	})
	if err != nil {
		return err
	}

	ttl := time.Until(code.ExpiresAt) + expiredGrace
	return s.rdb.Set(ctx, key(code.Email), payload, ttl).Err()
}

func (s *EmailCodes) Get(ctx context.Context, email string) (domain.EmailCode, error) {
	data, err := s.rdb.Get(ctx, key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EmailCode{}, store.ErrNotFound
		}
		return domain.EmailCode{}, err
	}

	var rec codeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.EmailCode{}, err
	}

	return domain.EmailCode{
		Email:     email,
		Code:      rec.Code,
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *EmailCodes) Delete(ctx context.Context, email string) error {
	return s.rdb.Del(ctx, key(email)).Err()
}

// DeleteExpired is a no-op here. Redis evicts keys via TTL on its own.
func (s *EmailCodes) DeleteExpired(ctx context.Context, now time.Time) error {
	return nil
}
