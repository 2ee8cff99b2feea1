package domain

import "time"

// EmailCode is a pending one-time login code. At most one live code exists
// per email; issuing a new one replaces any prior unconsumed code.
type EmailCode struct {
	Email     string // canonical lowercase form
	Code      string // 6 ASCII digits, compared as a string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the code is past its window at the given time.
func (c EmailCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
