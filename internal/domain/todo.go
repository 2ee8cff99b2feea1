package domain

import (
	"errors"
	"time"
)

// Task status values.
type TodoStatus string

const (
	StatusPending    TodoStatus = "Pending"
	StatusInProgress TodoStatus = "InProgress"
	StatusCompleted  TodoStatus = "Completed"
)

// Task priority values.
type TodoPriority string

const (
	PriorityLow    TodoPriority = "Low"
	PriorityMedium TodoPriority = "Medium"
	PriorityHigh   TodoPriority = "High"
)

var (
	ErrBadStatus   = errors.New("domain: unknown todo status")
	ErrBadPriority = errors.New("domain: unknown todo priority")
)

// ParseTodoStatus validates a client-supplied status string.
func ParseTodoStatus(s string) (TodoStatus, error) {
	switch TodoStatus(s) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return TodoStatus(s), nil
	}
	return "", ErrBadStatus
}

// ParseTodoPriority validates a client-supplied priority string.
func ParseTodoPriority(s string) (TodoPriority, error) {
	switch TodoPriority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return TodoPriority(s), nil
	}
	return "", ErrBadPriority
}

// Todo belongs to exactly one user. GoogleEventID is set opportunistically
// after a successful calendar mirror and is best-effort only.
type Todo struct {
	ID            string       `json:"id"`
	UserID        string       `json:"-"`
	Title         string       `json:"title"`
	Description   string       `json:"description,omitempty"`
	DueDate       time.Time    `json:"dueDate"`
	Status        TodoStatus   `json:"status"`
	Priority      TodoPriority `json:"priority"`
	GoogleEventID *string      `json:"googleEventId,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// TodoFilter narrows a listing. Zero values mean "no constraint".
// Day, when set, matches tasks due within that calendar day (UTC).
type TodoFilter struct {
	Status   TodoStatus
	Priority TodoPriority
	Day      *time.Time
}
