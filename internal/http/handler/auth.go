package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"ingetin/internal/auth"
	"ingetin/internal/logging"
)

type AuthHandler struct {
	Svc *auth.Service
	JWT *auth.JWT
	Log *slog.Logger
}

type registerReq struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	ID               uint64    `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	TelegramChatID   *string   `json:"telegram_chat_id"`
	TelegramUsername *string   `json:"telegram_username"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toUserDTO(u *auth.User) userDTO {
	return userDTO{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		TelegramChatID:   u.TelegramChatID,
		TelegramUsername: u.TelegramUsername,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.Svc.Register(r.Context(), auth.RegisterInput{
		Username:        req.Username,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		h.authError(w, "register", err)
		return
	}
	h.issue(w, http.StatusCreated, u)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.Svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		h.authError(w, "login", err)
		return
	}
	h.issue(w, http.StatusOK, u)
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	u, err := h.Svc.Get(r.Context(), uid)
	if err != nil {
		h.authError(w, "profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

type updateProfileReq struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req updateProfileReq
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.Svc.UpdateProfile(r.Context(), uid, req.Username, req.Email)
	if err != nil {
		h.authError(w, "update profile", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(u))
}

type changePasswordReq struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	var req changePasswordReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		http.Error(w, "current and new password required", http.StatusBadRequest)
		return
	}

	if err := h.Svc.ChangePassword(r.Context(), uid, req.CurrentPassword, req.NewPassword); err != nil {
		h.authError(w, "change password", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	uid, _ := auth.UserIDFromContext(r.Context())

	if err := h.Svc.Delete(r.Context(), uid); err != nil {
		h.authError(w, "delete account", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) issue(w http.ResponseWriter, status int, u *auth.User) {
	token, err := h.JWT.Sign(u.ID)
	if err != nil {
		h.authError(w, "sign token", err)
		return
	}
	writeJSON(w, status, map[string]any{
		"token": token,
		"user":  toUserDTO(u),
	})
}

func (h *AuthHandler) authError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, auth.ErrPasswordMismatch),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrUsernameTaken):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, auth.ErrInvalidCredentials):
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrNotFound):
		http.Error(w, "user not found", http.StatusNotFound)
	default:
		logging.Or(h.Log).Error("auth request failed", "op", op, "err", err)
		http.Error(w, "server error", http.StatusInternalServerError)
	}
}
