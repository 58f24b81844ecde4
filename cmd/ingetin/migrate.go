package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"ingetin/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down]",
	Short:     "Apply or roll back schema migrations",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"up", "down"},
	RunE: func(cmd *cobra.Command, args []string) error {
		direction := "up"
		if len(args) == 1 {
			direction = args[0]
		}
		if direction != "up" && direction != "down" {
			return fmt.Errorf("unknown direction %q, want up or down", direction)
		}

		cfg, log, err := setup(false)
		if err != nil {
			return err
		}
		if cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required")
		}
		return db.Migrate(cfg.DatabaseURL, direction == "up", log)
	},
}
