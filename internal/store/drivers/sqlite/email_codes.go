package sqlite

import (
	"context"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
)

type emailCodesRepo struct {
	q querier
}

// Put upserts in a single statement so the old code for the same email is
// never valid alongside the new one.
func (r *emailCodesRepo) Put(ctx context.Context, code domain.EmailCode) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO email_codes (email, code, issued_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (email) DO UPDATE SET
			code = excluded.code,
			issued_at = excluded.issued_at,
			expires_at = excluded.expires_at`,
		code.Email, code.Code, code.IssuedAt, code.ExpiresAt,
	)
	return err
}

func (r *emailCodesRepo) Get(ctx context.Context, email string) (domain.EmailCode, error) {
	var c domain.EmailCode
	err := r.q.QueryRowContext(ctx, `
		SELECT email, code, issued_at, expires_at FROM email_codes WHERE email = ?`,
		email,
	).Scan(&c.Email, &c.Code, &c.IssuedAt, &c.ExpiresAt)
	if err != nil {
		return domain.EmailCode{}, mapNotFound(err)
	}
	return c, nil
}

func (r *emailCodesRepo) Delete(ctx context.Context, email string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM email_codes WHERE email = ?`, email)
	return err
}

func (r *emailCodesRepo) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM email_codes WHERE expires_at < ?`, now)
	return err
}
