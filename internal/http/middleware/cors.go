package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// corsMethods covers every verb the API routes use.
var corsMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
}

// CORS allows browser clients from origins. With no origins configured it
// returns a pass-through middleware and cross-origin requests get no CORS
// headers.
func CORS(origins []string, allowCredentials bool) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   corsMethods,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Type"},
		AllowCredentials: allowCredentials,
		MaxAge:           600,
	})
}
