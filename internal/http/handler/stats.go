package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"ingetin/internal/auth"
	"ingetin/internal/logging"
)

type StatsHandler struct {
	Users *auth.Service
	Log   *slog.Logger
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	st, err := h.Users.Statistics(r.Context(), uid)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			http.Error(w, "statistics not found", http.StatusNotFound)
			return
		}
		logging.Or(h.Log).Error("read statistics", "user_id", uid, "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"user_id":      st.UserID,
		"failed_times": st.FailedTimes,
		"error_times":  st.ErrorTimes,
	})
}
