package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/idx"
)

type fakeCalendar struct {
	mu      sync.Mutex
	fail    bool
	created []string // todo IDs
	updated []string // event IDs
	deleted []string // event IDs
	nextID  int
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, refreshToken string, t domain.Todo) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("calendar is down")
	}
	f.nextID++
	f.created = append(f.created, t.ID)
	return "evt-" + t.ID, nil
}

func (f *fakeCalendar) UpdateEvent(ctx context.Context, refreshToken, eventID string, t domain.Todo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("calendar is down")
	}
	f.updated = append(f.updated, eventID)
	return nil
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, refreshToken, eventID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("calendar is down")
	}
	f.deleted = append(f.deleted, eventID)
	return nil
}

func (f *fakeCalendar) deletedEvents() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func newTodoService(t *testing.T, cal *fakeCalendar) (*TodoService, store.Store) {
	t.Helper()

	st := newTestStore(t)
	svc := &TodoService{
		Store:    st,
		Calendar: cal,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return svc, st
}

func seedOwner(t *testing.T, st store.Store, email string, connected bool) domain.User {
	t.Helper()

	now := time.Now().UTC()
	u := domain.User{
		ID:        idx.New().String(),
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if connected {
		gid := "g-" + u.ID
		refresh := "refresh-" + u.ID
		u.GoogleID = &gid
		u.GoogleRefresh = &refresh
		u.CalendarConnected = true
	}
	require.NoError(t, st.Users().CreateUser(context.Background(), u))
	return u
}

func TestTodoCreateMirrorsWhenConnected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, st := newTodoService(t, cal)
	owner := seedOwner(t, st, "alice@example.com", true)

	todo, err := svc.Create(ctx, owner.ID, CreateTodoParams{
		Title:   "write report",
		DueDate: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, todo.Status)
	require.Equal(t, domain.PriorityMedium, todo.Priority)

	// The mirror runs detached; wait for the event id to land.
	require.Eventually(t, func() bool {
		got, err := st.Todos().GetTodoByID(ctx, todo.ID)
		return err == nil && got.GoogleEventID != nil
	}, 2*time.Second, 10*time.Millisecond)

	got, err := st.Todos().GetTodoByID(ctx, todo.ID)
	require.NoError(t, err)
	require.Equal(t, "evt-"+todo.ID, *got.GoogleEventID)
}

func TestTodoCreateSucceedsWhenCalendarDown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := &fakeCalendar{fail: true}
	svc, st := newTodoService(t, cal)
	owner := seedOwner(t, st, "alice@example.com", true)

	todo, err := svc.Create(ctx, owner.ID, CreateTodoParams{
		Title:   "still works",
		DueDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// The task exists locally; only the mirror was lost.
	got, err := st.Todos().GetTodoByID(ctx, todo.ID)
	require.NoError(t, err)
	require.Nil(t, got.GoogleEventID)
}

func TestTodoCreateSkipsMirrorWhenNotConnected(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, st := newTodoService(t, cal)
	owner := seedOwner(t, st, "alice@example.com", false)

	todo, err := svc.Create(ctx, owner.ID, CreateTodoParams{
		Title:   "local only",
		DueDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	got, err := st.Todos().GetTodoByID(ctx, todo.ID)
	require.NoError(t, err)
	require.Nil(t, got.GoogleEventID)
}

func TestTodoCreateValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTodoService(t, &fakeCalendar{})
	owner := seedOwner(t, st, "alice@example.com", false)

	_, err := svc.Create(ctx, owner.ID, CreateTodoParams{DueDate: time.Now()})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, owner.ID, CreateTodoParams{Title: "no due date"})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, owner.ID, CreateTodoParams{
		Title:   "bad status",
		DueDate: time.Now(),
		Status:  "Done",
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestTodoOwnershipIsolation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, st := newTodoService(t, &fakeCalendar{})
	alice := seedOwner(t, st, "alice@example.com", false)
	mallory := seedOwner(t, st, "mallory@example.com", false)

	todo, err := svc.Create(ctx, alice.ID, CreateTodoParams{
		Title:   "private",
		DueDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	// Someone else's task reads as not found, never as forbidden.
	_, err = svc.Get(ctx, mallory.ID, todo.ID)
	require.ErrorIs(t, err, ErrNotFound)

	title := "hijacked"
	_, err = svc.Update(ctx, mallory.ID, todo.ID, UpdateTodoParams{Title: &title})
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, svc.Delete(ctx, mallory.ID, todo.ID), ErrNotFound)

	list, err := svc.List(ctx, mallory.ID, domain.TodoFilter{})
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestTodoUpdateAndDeleteMirror(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cal := &fakeCalendar{}
	svc, st := newTodoService(t, cal)
	owner := seedOwner(t, st, "alice@example.com", true)

	todo, err := svc.Create(ctx, owner.ID, CreateTodoParams{
		Title:   "to be edited",
		DueDate: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, err := st.Todos().GetTodoByID(ctx, todo.ID)
		return err == nil && got.GoogleEventID != nil
	}, 2*time.Second, 10*time.Millisecond)

	status := string(domain.StatusCompleted)
	updated, err := svc.Update(ctx, owner.ID, todo.ID, UpdateTodoParams{Status: &status})
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, updated.Status)

	require.Eventually(t, func() bool {
		cal.mu.Lock()
		defer cal.mu.Unlock()
		return len(cal.updated) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, svc.Delete(ctx, owner.ID, todo.ID))

	_, err = svc.Get(ctx, owner.ID, todo.ID)
	require.ErrorIs(t, err, ErrNotFound)

	require.Eventually(t, func() bool {
		return len(cal.deletedEvents()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, "evt-"+todo.ID, cal.deletedEvents()[0])
}
