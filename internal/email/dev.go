package email

import (
	"context"
	"log/slog"
)

// DevSender logs mail instead of sending it. Used when no Postmark tokens
// are configured, which keeps local runs of the full login flow possible.
type DevSender struct {
	Logger *slog.Logger
}

func NewDevSender(logger *slog.Logger) *DevSender {
	return &DevSender{Logger: logger}
}

func (d *DevSender) Send(ctx context.Context, to, subject, htmlBody string) error {
	d.Logger.InfoContext(ctx, "dev email sender: not delivering",
		"to", to,
		"subject", subject,
		"body_bytes", len(htmlBody),
	)
	return nil
}
