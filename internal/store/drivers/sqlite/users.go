package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
)

type usersRepo struct {
	q querier
}

const userColumns = `id, email, password_hash, totp_secret, two_factor_enabled,
	google_id, google_refresh_token, calendar_connected, created_at, updated_at`

func scanUser(row *sql.Row) (domain.User, error) {
	var (
		u            domain.User
		passwordHash sql.NullString
		totpSecret   sql.NullString
		googleID     sql.NullString
		refresh      sql.NullString
	)
	err := row.Scan(
		&u.ID,
		&u.Email,
		&passwordHash,
		&totpSecret,
		&u.TwoFactorEnabled,
		&googleID,
		&refresh,
		&u.CalendarConnected,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	u.PasswordHash = mapNullStringPtr(passwordHash)
	u.TOTPSecret = mapNullStringPtr(totpSecret)
	u.GoogleID = mapNullStringPtr(googleID)
	u.GoogleRefresh = mapNullStringPtr(refresh)
	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (r *usersRepo) GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = ?`, googleID)
	return scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO users (
			id, email, password_hash, totp_secret, two_factor_enabled,
			google_id, google_refresh_token, calendar_connected, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID,
		u.Email,
		mapOptionalString(u.PasswordHash),
		mapOptionalString(u.TOTPSecret),
		u.TwoFactorEnabled,
		mapOptionalString(u.GoogleID),
		mapOptionalString(u.GoogleRefresh),
		u.CalendarConnected,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *usersRepo) EnableTwoFactor(ctx context.Context, userID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET two_factor_enabled = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	return err
}

func (r *usersRepo) UpdateGoogleLink(ctx context.Context, userID, googleID, refreshToken string) error {
	// An empty refreshToken keeps whatever credential is already stored:
	// Google only hands one out on the first consented authorization.
	_, err := r.q.ExecContext(ctx, `
		UPDATE users SET
			google_id = ?,
			google_refresh_token = COALESCE(NULLIF(?, ''), google_refresh_token),
			calendar_connected = 1,
			updated_at = ?
		WHERE id = ?`,
		googleID, refreshToken, time.Now().UTC(), userID,
	)
	return mapConstraint(err)
}
