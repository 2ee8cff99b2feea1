// Package email delivers transactional mail. The orchestration layer only
// depends on Sender, so the Postmark client and the log-only dev sender are
// interchangeable.
package email

import (
	"context"
	"errors"
)

var (
	ErrInvalidConfig = errors.New("email: invalid config")
	ErrSendFailed    = errors.New("email: send failed")
)

// Sender sends a single HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}
