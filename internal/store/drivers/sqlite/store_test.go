package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/idx"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func strPtr(s string) *string { return &s }

func seedUser(t *testing.T, s *Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	u := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: strPtr("$argon2id$fake"),
		TOTPSecret:   strPtr("JBSWY3DPEHPK3PXP"),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func TestUsersRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice@example.com")

	t.Run("round trips by id and email", func(t *testing.T) {
		byID, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, u.Email, byID.Email)
		require.NotNil(t, byID.PasswordHash)
		require.False(t, byID.TwoFactorEnabled)

		byEmail, err := s.Users().GetUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		require.Equal(t, u.ID, byEmail.ID)
	})

	t.Run("unknown lookups return ErrNotFound", func(t *testing.T) {
		_, err := s.Users().GetUserByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = s.Users().GetUserByGoogleID(ctx, "g-unknown")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("duplicate email returns ErrAlreadyExists", func(t *testing.T) {
		dup := domain.User{
			ID:        idx.New().String(),
			Email:     u.Email,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("totp secret and two factor flag", func(t *testing.T) {
		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.TOTPSecret)
		require.Equal(t, "JBSWY3DPEHPK3PXP", *got.TOTPSecret)
		require.False(t, got.TwoFactorEnabled)

		require.NoError(t, s.Users().EnableTwoFactor(ctx, u.ID))

		got, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.True(t, got.TwoFactorEnabled)
	})

	t.Run("google link", func(t *testing.T) {
		require.NoError(t, s.Users().UpdateGoogleLink(ctx, u.ID, "g-12345", "refresh-token"))

		got, err := s.Users().GetUserByGoogleID(ctx, "g-12345")
		require.NoError(t, err)
		require.Equal(t, u.ID, got.ID)
		require.True(t, got.CalendarConnected)
		require.NotNil(t, got.GoogleRefresh)
		require.Equal(t, "refresh-token", *got.GoogleRefresh)

		// An empty refresh token keeps the stored credential.
		require.NoError(t, s.Users().UpdateGoogleLink(ctx, u.ID, "g-12345", ""))
		got, err = s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, got.GoogleRefresh)
		require.Equal(t, "refresh-token", *got.GoogleRefresh)
	})
}

func TestEmailCodesRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC().Truncate(time.Second)

	first := domain.EmailCode{
		Email:     "alice@example.com",
		Code:      "123456",
		IssuedAt:  now,
		ExpiresAt: now.Add(2 * time.Minute),
	}
	require.NoError(t, s.EmailCodes().Put(ctx, first))

	t.Run("get returns the stored code", func(t *testing.T) {
		got, err := s.EmailCodes().Get(ctx, first.Email)
		require.NoError(t, err)
		require.Equal(t, "123456", got.Code)
	})

	t.Run("put replaces the prior code", func(t *testing.T) {
		second := first
		second.Code = "654321"
		require.NoError(t, s.EmailCodes().Put(ctx, second))

		got, err := s.EmailCodes().Get(ctx, first.Email)
		require.NoError(t, err)
		require.Equal(t, "654321", got.Code)
	})

	t.Run("delete consumes the code", func(t *testing.T) {
		require.NoError(t, s.EmailCodes().Delete(ctx, first.Email))
		_, err := s.EmailCodes().Get(ctx, first.Email)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("delete expired sweeps old codes only", func(t *testing.T) {
		expired := domain.EmailCode{
			Email:     "old@example.com",
			Code:      "111111",
			IssuedAt:  now.Add(-10 * time.Minute),
			ExpiresAt: now.Add(-8 * time.Minute),
		}
		live := domain.EmailCode{
			Email:     "fresh@example.com",
			Code:      "222222",
			IssuedAt:  now,
			ExpiresAt: now.Add(2 * time.Minute),
		}
		require.NoError(t, s.EmailCodes().Put(ctx, expired))
		require.NoError(t, s.EmailCodes().Put(ctx, live))

		require.NoError(t, s.EmailCodes().DeleteExpired(ctx, now))

		_, err := s.EmailCodes().Get(ctx, expired.Email)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.EmailCodes().Get(ctx, live.Email)
		require.NoError(t, err)
	})
}

func TestTodosRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	owner := seedUser(t, s, "owner@example.com")
	now := time.Now().UTC().Truncate(time.Second)

	mk := func(title string, due time.Time, status domain.TodoStatus, priority domain.TodoPriority) domain.Todo {
		todo := domain.Todo{
			ID:        idx.New().String(),
			UserID:    owner.ID,
			Title:     title,
			DueDate:   due,
			Status:    status,
			Priority:  priority,
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, s.Todos().CreateTodo(ctx, todo))
		return todo
	}

	early := mk("early", now.Add(1*time.Hour), domain.StatusPending, domain.PriorityHigh)
	late := mk("late", now.Add(48*time.Hour), domain.StatusCompleted, domain.PriorityLow)

	t.Run("list orders by due date ascending", func(t *testing.T) {
		todos, err := s.Todos().ListTodos(ctx, owner.ID, domain.TodoFilter{})
		require.NoError(t, err)
		require.Len(t, todos, 2)
		require.Equal(t, early.ID, todos[0].ID)
		require.Equal(t, late.ID, todos[1].ID)
	})

	t.Run("filters by status and priority", func(t *testing.T) {
		todos, err := s.Todos().ListTodos(ctx, owner.ID, domain.TodoFilter{Status: domain.StatusCompleted})
		require.NoError(t, err)
		require.Len(t, todos, 1)
		require.Equal(t, late.ID, todos[0].ID)

		todos, err = s.Todos().ListTodos(ctx, owner.ID, domain.TodoFilter{Priority: domain.PriorityHigh})
		require.NoError(t, err)
		require.Len(t, todos, 1)
		require.Equal(t, early.ID, todos[0].ID)
	})

	t.Run("filters by day", func(t *testing.T) {
		day := early.DueDate
		todos, err := s.Todos().ListTodos(ctx, owner.ID, domain.TodoFilter{Day: &day})
		require.NoError(t, err)
		require.Len(t, todos, 1)
		require.Equal(t, early.ID, todos[0].ID)
	})

	t.Run("update rewrites mutable fields", func(t *testing.T) {
		early.Title = "renamed"
		early.Status = domain.StatusInProgress
		early.UpdatedAt = now.Add(time.Minute)
		require.NoError(t, s.Todos().UpdateTodo(ctx, early))

		got, err := s.Todos().GetTodoByID(ctx, early.ID)
		require.NoError(t, err)
		require.Equal(t, "renamed", got.Title)
		require.Equal(t, domain.StatusInProgress, got.Status)
	})

	t.Run("event id set and cleared", func(t *testing.T) {
		require.NoError(t, s.Todos().SetGoogleEventID(ctx, early.ID, "evt-1"))
		got, err := s.Todos().GetTodoByID(ctx, early.ID)
		require.NoError(t, err)
		require.NotNil(t, got.GoogleEventID)
		require.Equal(t, "evt-1", *got.GoogleEventID)

		require.NoError(t, s.Todos().SetGoogleEventID(ctx, early.ID, ""))
		got, err = s.Todos().GetTodoByID(ctx, early.ID)
		require.NoError(t, err)
		require.Nil(t, got.GoogleEventID)
	})

	t.Run("delete and missing rows", func(t *testing.T) {
		require.NoError(t, s.Todos().DeleteTodo(ctx, late.ID))
		require.ErrorIs(t, s.Todos().DeleteTodo(ctx, late.ID), store.ErrNotFound)

		_, err := s.Todos().GetTodoByID(ctx, late.ID)
		require.ErrorIs(t, err, store.ErrNotFound)

		missing := late
		require.ErrorIs(t, s.Todos().UpdateTodo(ctx, missing), store.ErrNotFound)
	})
}

func TestOAuthStatesRepo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	t.Run("consume is single use", func(t *testing.T) {
		require.NoError(t, s.OAuthStates().CreateState(ctx, "state-1", now.Add(10*time.Minute)))
		require.NoError(t, s.OAuthStates().ConsumeState(ctx, "state-1", now))
		require.ErrorIs(t, s.OAuthStates().ConsumeState(ctx, "state-1", now), store.ErrNotFound)
	})

	t.Run("expired states cannot be consumed", func(t *testing.T) {
		require.NoError(t, s.OAuthStates().CreateState(ctx, "state-2", now.Add(-time.Minute)))
		require.ErrorIs(t, s.OAuthStates().ConsumeState(ctx, "state-2", now), store.ErrNotFound)
	})

	t.Run("sweep removes expired states", func(t *testing.T) {
		require.NoError(t, s.OAuthStates().CreateState(ctx, "state-3", now.Add(-time.Minute)))
		require.NoError(t, s.OAuthStates().CreateState(ctx, "state-4", now.Add(10*time.Minute)))
		require.NoError(t, s.OAuthStates().DeleteExpiredStates(ctx, now))

		require.ErrorIs(t, s.OAuthStates().ConsumeState(ctx, "state-3", now.Add(-2*time.Minute)), store.ErrNotFound)
		require.NoError(t, s.OAuthStates().ConsumeState(ctx, "state-4", now))
	})
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newTestStore(t)
	now := time.Now().UTC()

	sentinel := store.ErrAlreadyExists
	err := s.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{ID: idx.New().String(), Email: "tx@example.com", CreatedAt: now, UpdatedAt: now}
		if err := tx.Users().CreateUser(ctx, u); err != nil {
			return err
		}
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)

	_, err = s.Users().GetUserByEmail(ctx, "tx@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}
