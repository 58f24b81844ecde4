package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"ingetin/internal/auth"
	"ingetin/internal/logging"
	"ingetin/internal/todo"
)

type TodoHandler struct {
	Svc *todo.Service
	Log *slog.Logger
}

type createTodoReq struct {
	TaskName         string  `json:"task_name"`
	Description      *string `json:"description"`
	Status           string  `json:"status"`
	ReminderTime     *string `json:"reminder_time"`
	ReminderDeadline *string `json:"reminder_deadline"`
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req createTodoReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.TaskName) == "" || req.ReminderDeadline == nil {
		http.Error(w, "task_name and reminder_deadline required", http.StatusBadRequest)
		return
	}

	remindAt, ok := optionalClock(w, "reminder_time", req.ReminderTime)
	if !ok {
		return
	}
	deadline, ok := optionalClock(w, "reminder_deadline", req.ReminderDeadline)
	if !ok {
		return
	}

	id, err := h.Svc.Create(r.Context(), uid, todo.CreateInput{
		TaskName:         req.TaskName,
		Description:      req.Description,
		Status:           strings.TrimSpace(strings.ToLower(req.Status)),
		ReminderTime:     remindAt,
		ReminderDeadline: deadline,
	})
	if err != nil {
		h.todoError(w, "create", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"todoId": id})
}

type updateTodoReq struct {
	TaskName         *string `json:"task_name"`
	Description      *string `json:"description"`
	ReminderTime     *string `json:"reminder_time"`
	ReminderDeadline *string `json:"reminder_deadline"`
}

func (h *TodoHandler) Update(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req updateTodoReq
	if !decodeJSON(w, r, &req) {
		return
	}
	remindAt, ok := optionalClock(w, "reminder_time", req.ReminderTime)
	if !ok {
		return
	}
	deadline, ok := optionalClock(w, "reminder_deadline", req.ReminderDeadline)
	if !ok {
		return
	}

	err := h.Svc.Update(r.Context(), uid, id, todo.UpdateInput{
		TaskName:         req.TaskName,
		Description:      req.Description,
		ReminderTime:     remindAt,
		ReminderDeadline: deadline,
	})
	if err != nil {
		h.todoError(w, "update", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	status := strings.TrimSpace(strings.ToLower(req.Status))
	if !todo.ValidStatus(status) {
		http.Error(w, "status must be active or disabled", http.StatusBadRequest)
		return
	}

	if err := h.Svc.SetStatus(r.Context(), uid, id, status); err != nil {
		h.todoError(w, "set status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		TaskProgress string `json:"task_progress"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	progress := strings.TrimSpace(strings.ToLower(req.TaskProgress))
	if !todo.ValidProgress(progress) {
		http.Error(w, "task_progress must be 'on progress' or 'done'", http.StatusBadRequest)
		return
	}

	if err := h.Svc.SetProgress(r.Context(), uid, id, progress); err != nil {
		h.todoError(w, "set progress", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.Svc.Delete(r.Context(), uid, id); err != nil {
		h.todoError(w, "delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// optionalClock parses an HH:MM[:SS] field. Absent or blank means nil.
func optionalClock(w http.ResponseWriter, field string, s *string) (*todo.Clock, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, true
	}
	c, err := todo.ParseClock(*s)
	if err != nil {
		http.Error(w, "invalid "+field+" (HH:MM)", http.StatusBadRequest)
		return nil, false
	}
	return &c, true
}

func (h *TodoHandler) todoError(w http.ResponseWriter, op string, err error) {
	todoError(w, h.Log, op, err)
}

func todoError(w http.ResponseWriter, log *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, todo.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, todo.ErrLimitReached):
		http.Error(w, "todo limit reached", http.StatusBadRequest)
	case errors.Is(err, todo.ErrNoFields):
		http.Error(w, "no fields to update", http.StatusBadRequest)
	case errors.Is(err, todo.ErrInvalidInput), errors.Is(err, todo.ErrInvalidClock):
		http.Error(w, "invalid input", http.StatusBadRequest)
	default:
		logging.Or(log).Error("todo request failed", "op", op, "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
