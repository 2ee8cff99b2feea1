package domain

import "time"

// User is a local identity. Email is the sole natural key; GoogleID, when
// set, is unique across all users and maps to exactly one record.
type User struct {
	ID                string
	Email             string     // canonical lowercase form
	PasswordHash      *string    // argon2 encoded; nil for federated-only accounts
	TOTPSecret        *string    // base32, generated once at enrollment (nullable)
	TwoFactorEnabled  bool       // flipped one-way on first successful TOTP verification
	GoogleID          *string    // federated identity id (nullable, unique when present)
	GoogleRefresh     *string    // opaque refresh credential for calendar access (nullable)
	CalendarConnected bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasPassword reports whether the account can take the password-login path.
// Federated-only accounts have no usable password and are rejected there.
func (u User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// PublicUser is the subset of identity fields safe to return to clients.
type PublicUser struct {
	ID                string `json:"id"`
	Email             string `json:"email"`
	CalendarConnected bool   `json:"googleCalendarConnected"`
}

// Public strips secret material from a User.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Email:             u.Email,
		CalendarConnected: u.CalendarConnected,
	}
}
