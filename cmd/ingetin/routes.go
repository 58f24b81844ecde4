package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"ingetin/internal/auth"
	httpx "ingetin/internal/http"
	"ingetin/internal/todo"
)

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "Print the registered HTTP routes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, log, err := setup(false)
		if err != nil {
			return err
		}

		var webhook http.Handler
		if cfg.TelegramWebhookURL != "" {
			webhook = http.NotFoundHandler()
		}
		router := httpx.NewRouter(httpx.Deps{
			Config:  cfg,
			Users:   &auth.Service{},
			Todos:   &todo.Service{},
			JWT:     auth.NewJWT(cfg.JWTSecret, cfg.JWTTTL),
			Log:     log,
			Webhook: webhook,
		})

		out := cmd.OutOrStdout()
		return chi.Walk(router.(chi.Routes), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
			if len(route) > 1 {
				route = strings.TrimSuffix(route, "/")
			}
			_, err := fmt.Fprintf(out, "%-7s %s\n", method, route)
			return err
		})
	},
}
