package handler

import (
	"log/slog"
	"net/http"
	"time"

	"ingetin/internal/auth"
	"ingetin/internal/todo"
)

type TodoReadHandler struct {
	Svc *todo.Service
	Log *slog.Logger
}

type todoDTO struct {
	ID                uint64    `json:"id"`
	UserID            uint64    `json:"user_id"`
	TaskName          string    `json:"task_name"`
	Description       *string   `json:"description"`
	Status            string    `json:"status"`
	ReminderTime      *string   `json:"reminder_time"`
	ReminderDeadline  *string   `json:"reminder_deadline"`
	IsReminded        bool      `json:"is_reminded"`
	FailedCount       int       `json:"failed_count"`
	TaskProgress      string    `json:"task_progress"`
	LastProgressReset *string   `json:"last_progress_reset"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

type historyDTO struct {
	ID         uint64    `json:"id"`
	TodoID     uint64    `json:"todo_id"`
	ActionType string    `json:"action_type"`
	ActionTime time.Time `json:"action_time"`
	Notes      string    `json:"notes"`
}

func clockString(c *todo.Clock) *string {
	if c == nil {
		return nil
	}
	s := c.Short()
	return &s
}

func toTodoDTO(t todo.Task) todoDTO {
	out := todoDTO{
		ID:               t.ID,
		UserID:           t.UserID,
		TaskName:         t.TaskName,
		Description:      t.Description,
		Status:           t.Status,
		ReminderTime:     clockString(t.ReminderTime),
		ReminderDeadline: clockString(t.ReminderDeadline),
		IsReminded:       t.IsReminded,
		FailedCount:      t.FailedCount,
		TaskProgress:     t.TaskProgress,
		CreatedAt:        t.CreatedAt,
		UpdatedAt:        t.UpdatedAt,
	}
	if t.LastProgressReset != nil {
		d := t.LastProgressReset.Format(time.DateOnly)
		out.LastProgressReset = &d
	}
	return out
}

func (h *TodoReadHandler) List(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.Svc.List(r.Context(), uid)
	if err != nil {
		todoError(w, h.Log, "list", err)
		return
	}
	out := make([]todoDTO, 0, len(rows))
	for _, t := range rows {
		out = append(out, toTodoDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *TodoReadHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.Svc.Get(r.Context(), uid, id)
	if err != nil {
		todoError(w, h.Log, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toTodoDTO(*t))
}

func (h *TodoReadHandler) History(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rows, err := h.Svc.History(r.Context(), uid, id)
	if err != nil {
		todoError(w, h.Log, "history", err)
		return
	}
	out := make([]historyDTO, 0, len(rows))
	for _, rec := range rows {
		out = append(out, historyDTO{
			ID:         rec.ID,
			TodoID:     rec.TodoID,
			ActionType: rec.ActionType,
			ActionTime: rec.ActionTime,
			Notes:      rec.Notes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
