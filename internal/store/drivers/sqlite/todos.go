package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
)

type todosRepo struct {
	q querier
}

const todoColumns = `id, user_id, title, description, due_date, status, priority,
	google_event_id, created_at, updated_at`

func scanTodo(row *sql.Row) (domain.Todo, error) {
	var (
		t       domain.Todo
		eventID sql.NullString
	)
	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Description,
		&t.DueDate,
		&t.Status,
		&t.Priority,
		&eventID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return domain.Todo{}, mapNotFound(err)
	}
	t.GoogleEventID = mapNullStringPtr(eventID)
	return t, nil
}

func (r *todosRepo) GetTodoByID(ctx context.Context, id string) (domain.Todo, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	return scanTodo(row)
}

func (r *todosRepo) ListTodos(ctx context.Context, userID string, f domain.TodoFilter) ([]domain.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos WHERE user_id = ?`
	args := []any{userID}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.Priority != "" {
		query += ` AND priority = ?`
		args = append(args, f.Priority)
	}
	if f.Day != nil {
		dayStart := time.Date(f.Day.Year(), f.Day.Month(), f.Day.Day(), 0, 0, 0, 0, time.UTC)
		query += ` AND due_date >= ? AND due_date < ?`
		args = append(args, dayStart, dayStart.Add(24*time.Hour))
	}

	query += ` ORDER BY due_date ASC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := make([]domain.Todo, 0)
	for rows.Next() {
		var (
			t       domain.Todo
			eventID sql.NullString
		)
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Description,
			&t.DueDate,
			&t.Status,
			&t.Priority,
			&eventID,
			&t.CreatedAt,
			&t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		t.GoogleEventID = mapNullStringPtr(eventID)
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

func (r *todosRepo) CreateTodo(ctx context.Context, t domain.Todo) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO todos (
			id, user_id, title, description, due_date, status, priority,
			google_event_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.Priority,
		mapOptionalString(t.GoogleEventID),
		t.CreatedAt,
		t.UpdatedAt,
	)
	return mapConstraint(err)
}

func (r *todosRepo) UpdateTodo(ctx context.Context, t domain.Todo) error {
	res, err := r.q.ExecContext(ctx, `
		UPDATE todos SET
			title = ?,
			description = ?,
			due_date = ?,
			status = ?,
			priority = ?,
			updated_at = ?
		WHERE id = ?`,
		t.Title,
		t.Description,
		t.DueDate,
		t.Status,
		t.Priority,
		t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return err
	}
	return mapNoRows(res)
}

func (r *todosRepo) DeleteTodo(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return mapNoRows(res)
}

func (r *todosRepo) SetGoogleEventID(ctx context.Context, id string, eventID string) error {
	_, err := r.q.ExecContext(ctx, `
		UPDATE todos SET google_event_id = NULLIF(?, ''), updated_at = ? WHERE id = ?`,
		eventID, time.Now().UTC(), id,
	)
	return err
}
