package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"ingetin/internal/auth"
	"ingetin/internal/config"
	"ingetin/internal/http/handler"
	mw "ingetin/internal/http/middleware"
	"ingetin/internal/todo"
)

const Version = "1.0.0"

type Deps struct {
	Config config.Config
	Users  *auth.Service
	Todos  *todo.Service
	JWT    *auth.JWT
	Log    *slog.Logger

	// Webhook receives Telegram updates; nil when the bot polls.
	Webhook http.Handler
}

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(mw.RequestLogger(d.Log))
	r.Use(chimw.Recoverer)

	r.Use(mw.CORS(d.Config.CORSAllowedOrigins, d.Config.CORSAllowCredentials))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if d.Webhook != nil {
		r.Post("/telegram/webhook", d.Webhook.ServeHTTP)
	}

	ah := &handler.AuthHandler{Svc: d.Users, JWT: d.JWT, Log: d.Log}
	th := &handler.TodoHandler{Svc: d.Todos, Log: d.Log}
	tr := &handler.TodoReadHandler{Svc: d.Todos, Log: d.Log}
	tg := &handler.TelegramHandler{Users: d.Users, Log: d.Log}
	sh := &handler.StatsHandler{Users: d.Users, Log: d.Log}

	r.Route("/api", func(r chi.Router) {
		r.Get("/", handler.Info(Version))

		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(d.JWT))

			r.Get("/auth/profile", ah.Profile)
			r.Put("/auth/profile", ah.UpdateProfile)
			r.Put("/auth/password", ah.ChangePassword)
			r.Delete("/auth/account", ah.DeleteAccount)

			r.Post("/telegram/link", tg.Link)
			r.Get("/stats", sh.Get)

			r.Route("/todos", func(r chi.Router) {
				r.Post("/", th.Create)
				r.Get("/", tr.List)

				r.Get("/{id}", tr.Get)
				r.Put("/{id}", th.Update)
				r.Delete("/{id}", th.Delete)
				r.Patch("/{id}/status", th.SetStatus)
				r.Patch("/{id}/progress", th.SetProgress)
				r.Get("/{id}/history", tr.History)
			})
		})
	})

	return r
}
