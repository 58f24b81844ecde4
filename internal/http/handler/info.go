package handler

import "net/http"

// Info describes the API at /api.
func Info(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"name":    "ingetin",
			"version": version,
			"endpoints": map[string]string{
				"auth":     "/api/auth",
				"todos":    "/api/todos",
				"stats":    "/api/stats",
				"telegram": "/api/telegram",
			},
		})
	}
}
