package store

import (
	"context"
	"errors"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite today)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable.
type Store interface {
	Users() Users
	Todos() Todos
	EmailCodes() EmailCodes
	OAuthStates() OAuthStates

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by the canonical lowercase email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByGoogleID looks up by the federated identity id.
	GetUserByGoogleID(ctx context.Context, googleID string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	// Returns ErrAlreadyExists on an email or google_id collision.
	CreateUser(ctx context.Context, u domain.User) error

	// EnableTwoFactor flips the two_factor_enabled flag. One-way: there is
	// no corresponding disable. Single-statement write, so atomic per record.
	EnableTwoFactor(ctx context.Context, userID string) error

	// UpdateGoogleLink attaches (or refreshes) the federated identity link
	// and stored refresh credential, marking the calendar as connected.
	UpdateGoogleLink(ctx context.Context, userID, googleID, refreshToken string) error
}

// EmailCodes stores pending one-time login codes with expiry. Both the
// sqlite table and the Redis driver satisfy this, so the backing choice is
// swappable without touching orchestration logic. Put must be observably
// atomic with invalidating any prior code for the same email.
type EmailCodes interface {
	Put(ctx context.Context, code domain.EmailCode) error
	Get(ctx context.Context, email string) (domain.EmailCode, error)
	Delete(ctx context.Context, email string) error

	// DeleteExpired removes codes past their window plus the grace period.
	// Housekeeping only; verification deletes expired codes lazily anyway.
	DeleteExpired(ctx context.Context, now time.Time) error
}

type Todos interface {
	GetTodoByID(ctx context.Context, id string) (domain.Todo, error)

	// ListTodos returns the owner's tasks matching the filter, ordered by
	// due date ascending.
	ListTodos(ctx context.Context, userID string, f domain.TodoFilter) ([]domain.Todo, error)

	CreateTodo(ctx context.Context, t domain.Todo) error

	// UpdateTodo rewrites the mutable fields and bumps updated_at.
	UpdateTodo(ctx context.Context, t domain.Todo) error

	DeleteTodo(ctx context.Context, id string) error

	// SetGoogleEventID records the mirrored calendar event id, or clears it
	// when eventID is empty.
	SetGoogleEventID(ctx context.Context, id string, eventID string) error
}

// OAuthStates stores single-use CSRF state tokens for the federated login
// redirect flow.
type OAuthStates interface {
	CreateState(ctx context.Context, state string, expiresAt time.Time) error

	// ConsumeState deletes the state and returns ErrNotFound when it is
	// unknown or already expired. Single use by construction.
	ConsumeState(ctx context.Context, state string, now time.Time) error

	DeleteExpiredStates(ctx context.Context, now time.Time) error
}
