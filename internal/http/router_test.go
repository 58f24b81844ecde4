package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ingetin/internal/auth"
	"ingetin/internal/config"
	"ingetin/internal/logging"
	"ingetin/internal/todo"
)

func newTestRouter(t *testing.T, webhook http.Handler) (http.Handler, *auth.JWT) {
	t.Helper()
	jwt := auth.NewJWT("test-secret", time.Hour)
	return NewRouter(Deps{
		Config:  config.Config{CORSAllowedOrigins: []string{"http://localhost:3000"}},
		Users:   &auth.Service{},
		Todos:   &todo.Service{},
		JWT:     jwt,
		Log:     logging.Discard(),
		Webhook: webhook,
	}), jwt
}

func do(h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestInfo(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	rec := do(h, http.MethodGet, "/api", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ingetin", body["name"])
	assert.Equal(t, Version, body["version"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/auth/profile"},
		{http.MethodPut, "/api/auth/profile"},
		{http.MethodPut, "/api/auth/password"},
		{http.MethodDelete, "/api/auth/account"},
		{http.MethodPost, "/api/telegram/link"},
		{http.MethodGet, "/api/stats"},
		{http.MethodGet, "/api/todos"},
		{http.MethodPost, "/api/todos"},
		{http.MethodGet, "/api/todos/1"},
		{http.MethodPut, "/api/todos/1"},
		{http.MethodDelete, "/api/todos/1"},
		{http.MethodPatch, "/api/todos/1/status"},
		{http.MethodPatch, "/api/todos/1/progress"},
		{http.MethodGet, "/api/todos/1/history"},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, do(h, rt.method, rt.path, "", nil).Code)
			assert.Equal(t, http.StatusUnauthorized, do(h, rt.method, rt.path, "garbage", nil).Code)
		})
	}
}

// Each case is rejected before the services touch the database.
func TestRequestValidation(t *testing.T) {
	h, jwt := newTestRouter(t, nil)
	token, err := jwt.Sign(7)
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{"register missing fields", http.MethodPost, "/api/auth/register", "", map[string]string{"email": "a@b.c"}, http.StatusBadRequest},
		{"register password mismatch", http.MethodPost, "/api/auth/register", "", map[string]string{
			"username": "ana", "email": "ana@example.com", "password": "secret123", "confirmPassword": "secret124",
		}, http.StatusBadRequest},
		{"register short password", http.MethodPost, "/api/auth/register", "", map[string]string{
			"username": "ana", "email": "ana@example.com", "password": "short", "confirmPassword": "short",
		}, http.StatusBadRequest},
		{"login missing password", http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.c"}, http.StatusBadRequest},
		{"bad json", http.MethodPost, "/api/todos", token, "{", http.StatusBadRequest},
		{"create without deadline", http.MethodPost, "/api/todos", token, map[string]string{"task_name": "x"}, http.StatusBadRequest},
		{"create with bad time", http.MethodPost, "/api/todos", token, map[string]string{
			"task_name": "x", "reminder_deadline": "25:00",
		}, http.StatusBadRequest},
		{"invalid id", http.MethodGet, "/api/todos/abc", token, nil, http.StatusBadRequest},
		{"update nothing", http.MethodPut, "/api/todos/1", token, map[string]string{}, http.StatusBadRequest},
		{"bad status", http.MethodPatch, "/api/todos/1/status", token, map[string]string{"status": "paused"}, http.StatusBadRequest},
		{"bad progress", http.MethodPatch, "/api/todos/1/progress", token, map[string]string{"task_progress": "half"}, http.StatusBadRequest},
		{"link non numeric chat", http.MethodPost, "/api/telegram/link", token, map[string]string{"chat_id": "abc"}, http.StatusBadRequest},
		{"password fields missing", http.MethodPut, "/api/auth/password", token, map[string]string{}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if s, ok := tt.body.(string); ok {
				req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(s))
				req.Header.Set("Authorization", "Bearer "+tt.token)
				rec = httptest.NewRecorder()
				h.ServeHTTP(rec, req)
			} else {
				rec = do(h, tt.method, tt.path, tt.token, tt.body)
			}
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestWebhookMountedOnlyWhenSet(t *testing.T) {
	h, _ := newTestRouter(t, nil)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/telegram/webhook", "", nil).Code)

	called := false
	h, _ = newTestRouter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/telegram/webhook", "", nil).Code)
	assert.True(t, called)
}

func TestRoutesTable(t *testing.T) {
	h, _ := newTestRouter(t, nil)

	var got []string
	err := chi.Walk(h.(chi.Routes), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		got = append(got, method+" "+strings.TrimSuffix(route, "/"))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(got)

	for _, want := range []string{
		"GET /health",
		"GET /api",
		"POST /api/auth/register",
		"PATCH /api/todos/{id}/progress",
		"GET /api/todos/{id}/history",
		"GET /api/stats",
	} {
		assert.Contains(t, got, want)
	}
}
