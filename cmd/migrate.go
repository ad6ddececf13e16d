package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/chat-service/config"
	"github.com/cwrk-planet/chat-service/internal/postgres"
	"github.com/cwrk-planet/chat-service/internal/sqlite"

	"github.com/spf13/cobra"
)

var migrateSteps int

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver == config.StorageSQLite {
			// Open сам накатывает схему
			store, err := sqlite.Open(cfg.SQLite.Path)
			if err != nil {
				return err
			}
			slog.Info("sqlite migrations applied", "path", cfg.SQLite.Path)
			return store.Close()
		}
		if err := postgres.MigrateUp(cfg.Postgres.DSN); err != nil {
			return err
		}
		slog.Info("postgres migrations applied")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations (--steps, 0 = all)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Storage.Driver != config.StoragePostgres {
			return errors.New("migrate down is supported for postgres only")
		}
		if migrateSteps < 0 {
			return fmt.Errorf("invalid --steps %d", migrateSteps)
		}
		if err := postgres.MigrateDown(cfg.Postgres.DSN, migrateSteps); err != nil {
			return err
		}
		slog.Info("postgres migrations rolled back", "steps", migrateSteps)
		return nil
	},
}

func init() {
	migrateDownCmd.Flags().IntVar(&migrateSteps, "steps", 1, "number of migrations to roll back, 0 = all")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}
