package sqlite

import (
	"context"
	"time"
)

type oauthStatesRepo struct {
	q querier
}

func (r *oauthStatesRepo) CreateState(ctx context.Context, state string, expiresAt time.Time) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO oauth_states (state, expires_at, created_at) VALUES (?, ?, ?)`,
		state, expiresAt, time.Now().UTC(),
	)
	return mapConstraint(err)
}

// ConsumeState deletes the state row in one statement. A concurrent second
// consume sees zero rows affected and fails, so each state is single use.
func (r *oauthStatesRepo) ConsumeState(ctx context.Context, state string, now time.Time) error {
	res, err := r.q.ExecContext(ctx, `
		DELETE FROM oauth_states WHERE state = ? AND expires_at >= ?`,
		state, now,
	)
	if err != nil {
		return err
	}
	return mapNoRows(res)
}

func (r *oauthStatesRepo) DeleteExpiredStates(ctx context.Context, now time.Time) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM oauth_states WHERE expires_at < ?`, now)
	return err
}
