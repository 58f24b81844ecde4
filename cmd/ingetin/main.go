package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"ingetin/internal/config"
	"ingetin/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "ingetin",
	Short: "Todo reminders delivered over Telegram",
	Long: `ingetin serves the todo API, sends reminders through a Telegram bot and
penalizes missed deadlines.

Examples:
  ingetin serve
  ingetin migrate up
  ingetin routes`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, routesCmd)
}

// setup loads the configuration and installs the default logger.
func setup(validate bool) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, nil, err
	}
	log := logging.Init(logging.Config{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	if validate {
		if err := cfg.Validate(); err != nil {
			return cfg, log, err
		}
	}
	return cfg, log, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
