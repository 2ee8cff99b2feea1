package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/daybookhq/daybook/internal/calendar"
	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/store"
	"github.com/daybookhq/daybook/pkg/idx"
)

// mirrorTimeout bounds each background calendar call.
const mirrorTimeout = 15 * time.Second

// CreateTodoParams carries the client-supplied fields for a new task.
type CreateTodoParams struct {
	Title       string
	Description string
	DueDate     time.Time
	Status      string // optional, defaults to Pending
	Priority    string // optional, defaults to Medium
}

// UpdateTodoParams carries the mutable fields. Pointers distinguish "leave
// unchanged" from an explicit new value.
type UpdateTodoParams struct {
	Title       *string
	Description *string
	DueDate     *time.Time
	Status      *string
	Priority    *string
}

// TodoService owns task CRUD plus the best-effort calendar mirror. Mirror
// calls run detached after the local write commits; a calendar outage never
// fails a task operation.
type TodoService struct {
	Store    store.Store
	Calendar calendar.Client
	Logger   *slog.Logger
}

// Create validates and stores a new task, then mirrors it in the background
// when the owner's calendar is connected.
func (s *TodoService) Create(ctx context.Context, userID string, p CreateTodoParams) (domain.Todo, error) {
	if p.Title == "" {
		return domain.Todo{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if p.DueDate.IsZero() {
		return domain.Todo{}, fmt.Errorf("%w: dueDate is required", ErrValidation)
	}

	status := domain.StatusPending
	if p.Status != "" {
		var err error
		if status, err = domain.ParseTodoStatus(p.Status); err != nil {
			return domain.Todo{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	priority := domain.PriorityMedium
	if p.Priority != "" {
		var err error
		if priority, err = domain.ParseTodoPriority(p.Priority); err != nil {
			return domain.Todo{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}

	now := time.Now().UTC()
	t := domain.Todo{
		ID:          idx.New().String(),
		UserID:      userID,
		Title:       p.Title,
		Description: p.Description,
		DueDate:     p.DueDate.UTC(),
		Status:      status,
		Priority:    priority,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Todos().CreateTodo(ctx, t); err != nil {
		return domain.Todo{}, fmt.Errorf("failed to create todo: %w", err)
	}

	s.mirrorAsync(ctx, t.UserID, func(ctx context.Context, refresh string) {
		eventID, err := s.Calendar.CreateEvent(ctx, refresh, t)
		if err != nil {
			s.Logger.WarnContext(ctx, "calendar mirror create failed", "todo_id", t.ID, "error", err)
			return
		}
		if err := s.Store.Todos().SetGoogleEventID(ctx, t.ID, eventID); err != nil {
			s.Logger.WarnContext(ctx, "failed to record mirrored event id", "todo_id", t.ID, "error", err)
		}
	})

	return t, nil
}

// List returns the user's tasks, optionally filtered, due date ascending.
func (s *TodoService) List(ctx context.Context, userID string, f domain.TodoFilter) ([]domain.Todo, error) {
	return s.Store.Todos().ListTodos(ctx, userID, f)
}

// Get returns one task. A task owned by someone else reads as not found.
func (s *TodoService) Get(ctx context.Context, userID, todoID string) (domain.Todo, error) {
	t, err := s.Store.Todos().GetTodoByID(ctx, todoID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Todo{}, ErrNotFound
		}
		return domain.Todo{}, fmt.Errorf("failed to load todo: %w", err)
	}
	if t.UserID != userID {
		return domain.Todo{}, ErrNotFound
	}
	return t, nil
}

// Update applies the provided fields and re-mirrors the task.
func (s *TodoService) Update(ctx context.Context, userID, todoID string, p UpdateTodoParams) (domain.Todo, error) {
	t, err := s.Get(ctx, userID, todoID)
	if err != nil {
		return domain.Todo{}, err
	}

	if p.Title != nil {
		if *p.Title == "" {
			return domain.Todo{}, fmt.Errorf("%w: title cannot be empty", ErrValidation)
		}
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.DueDate != nil {
		t.DueDate = p.DueDate.UTC()
	}
	if p.Status != nil {
		if t.Status, err = domain.ParseTodoStatus(*p.Status); err != nil {
			return domain.Todo{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	if p.Priority != nil {
		if t.Priority, err = domain.ParseTodoPriority(*p.Priority); err != nil {
			return domain.Todo{}, fmt.Errorf("%w: %v", ErrValidation, err)
		}
	}
	t.UpdatedAt = time.Now().UTC()

	if err := s.Store.Todos().UpdateTodo(ctx, t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Todo{}, ErrNotFound
		}
		return domain.Todo{}, fmt.Errorf("failed to update todo: %w", err)
	}

	s.mirrorAsync(ctx, t.UserID, func(ctx context.Context, refresh string) {
		if t.GoogleEventID == nil {
			// Never mirrored, or the earlier create mirror failed. Try again.
			eventID, err := s.Calendar.CreateEvent(ctx, refresh, t)
			if err != nil {
				s.Logger.WarnContext(ctx, "calendar mirror create failed", "todo_id", t.ID, "error", err)
				return
			}
			if err := s.Store.Todos().SetGoogleEventID(ctx, t.ID, eventID); err != nil {
				s.Logger.WarnContext(ctx, "failed to record mirrored event id", "todo_id", t.ID, "error", err)
			}
			return
		}
		if err := s.Calendar.UpdateEvent(ctx, refresh, *t.GoogleEventID, t); err != nil {
			s.Logger.WarnContext(ctx, "calendar mirror update failed", "todo_id", t.ID, "error", err)
		}
	})

	return t, nil
}

// Delete removes the task locally, then removes its mirrored event.
func (s *TodoService) Delete(ctx context.Context, userID, todoID string) error {
	t, err := s.Get(ctx, userID, todoID)
	if err != nil {
		return err
	}

	if err := s.Store.Todos().DeleteTodo(ctx, todoID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete todo: %w", err)
	}

	if t.GoogleEventID != nil {
		eventID := *t.GoogleEventID
		s.mirrorAsync(ctx, t.UserID, func(ctx context.Context, refresh string) {
			err := s.Calendar.DeleteEvent(ctx, refresh, eventID)
			if err != nil && !errors.Is(err, calendar.ErrEventNotFound) {
				s.Logger.WarnContext(ctx, "calendar mirror delete failed", "todo_id", t.ID, "error", err)
			}
		})
	}

	return nil
}

// mirrorAsync runs fn detached from the request. The local write has already
// committed; WithoutCancel keeps the mirror alive after the response is sent,
// and the timeout stops it from leaking.
func (s *TodoService) mirrorAsync(ctx context.Context, userID string, fn func(ctx context.Context, refresh string)) {
	if s.Calendar == nil {
		return
	}

	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil || !u.CalendarConnected || u.GoogleRefresh == nil {
		return
	}
	refresh := *u.GoogleRefresh

	bg := context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(bg, mirrorTimeout)
		defer cancel()
		fn(ctx, refresh)
	}()
}
