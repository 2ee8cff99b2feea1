package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/daybookhq/daybook/internal/domain"
	"github.com/daybookhq/daybook/internal/service"
	"github.com/daybookhq/daybook/pkg/httpx"
	"github.com/daybookhq/daybook/pkg/slogx"
)

// TodoHandler handles task CRUD. Every route sits behind AuthnMiddleware, so
// a missing user id in the context is a programming error, not a client one.
type TodoHandler struct {
	TodoService *service.TodoService
}

type createTodoRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	DueDate     time.Time `json:"dueDate"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
}

type updateTodoRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
}

func writeTodoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "Todo not found")
	default:
		slogx.FromContext(r.Context()).Error("todo operation failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

// HandleCreate handles POST /todo.
func (h *TodoHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	var req createTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	todo, err := h.TodoService.Create(ctx, userID, service.CreateTodoParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		writeTodoError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, todo)
}

// HandleList handles GET /todo with optional status, priority, and day
// query filters.
func (h *TodoHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	var filter domain.TodoFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status, err := domain.ParseTodoStatus(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Unknown status filter")
			return
		}
		filter.Status = status
	}
	if v := q.Get("priority"); v != "" {
		priority, err := domain.ParseTodoPriority(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Unknown priority filter")
			return
		}
		filter.Priority = priority
	}
	if v := q.Get("day"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "Day filter must be YYYY-MM-DD")
			return
		}
		filter.Day = &day
	}

	todos, err := h.TodoService.List(ctx, userID, filter)
	if err != nil {
		writeTodoError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, todos)
}

// HandleGet handles GET /todo/{id}.
func (h *TodoHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	todo, err := h.TodoService.Get(ctx, userID, r.PathValue("id"))
	if err != nil {
		writeTodoError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, todo)
}

// HandleUpdate handles PUT /todo/{id}.
func (h *TodoHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	var req updateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	todo, err := h.TodoService.Update(ctx, userID, r.PathValue("id"), service.UpdateTodoParams{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Status:      req.Status,
		Priority:    req.Priority,
	})
	if err != nil {
		writeTodoError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, todo)
}

// HandleDelete handles DELETE /todo/{id}.
func (h *TodoHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := httpx.UserIDFromContext(ctx)

	if err := h.TodoService.Delete(ctx, userID, r.PathValue("id")); err != nil {
		writeTodoError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
