package auth

import (
	"context"
	"net/http"
	"strings"

	"ingetin/internal/logging"
)

type ctxKey string

const userIDKey ctxKey = "user_id"

type TokenVerifier interface {
	Verify(token string) (uint64, error)
}

func UserIDFromContext(ctx context.Context) (uint64, bool) {
	v := ctx.Value(userIDKey)
	id, ok := v.(uint64)
	return id, ok
}

func WithUserID(ctx context.Context, id uint64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// RequireAuth rejects requests without a valid "Bearer" token and stores the
// token subject in the request context.
func RequireAuth(v TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
				http.Error(w, "authorization token missing or invalid", http.StatusUnauthorized)
				return
			}

			uid, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				logging.Default().Debug("jwt verification failed", "err", err, "path", r.URL.Path)
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), uid)))
		})
	}
}
