package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ingetin/internal/auth"
	"ingetin/internal/logging"
)

type TelegramHandler struct {
	Users *auth.Service
	Log   *slog.Logger
}

// chatIDParam accepts the chat id as a JSON number or string.
type chatIDParam string

func (c *chatIDParam) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*c = chatIDParam(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*c = chatIDParam(strings.TrimSpace(s))
	return nil
}

type linkTelegramReq struct {
	ChatID   chatIDParam `json:"chat_id"`
	Username *string     `json:"username"`
}

func (h *TelegramHandler) Link(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req linkTelegramReq
	if !decodeJSON(w, r, &req) {
		return
	}
	chatID := string(req.ChatID)
	if _, err := strconv.ParseInt(chatID, 10, 64); err != nil {
		http.Error(w, "chat_id must be numeric", http.StatusBadRequest)
		return
	}
	if req.Username != nil {
		u := strings.TrimPrefix(strings.TrimSpace(*req.Username), "@")
		req.Username = &u
		if u == "" {
			req.Username = nil
		}
	}

	if err := h.Users.LinkTelegram(r.Context(), uid, chatID, req.Username); err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		logging.Or(h.Log).Error("link telegram", "user_id", uid, "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"telegram_chat_id":  chatID,
		"telegram_username": req.Username,
	})
}
