package main

import (
	"github.com/spf13/cobra"

	"shiftguard/internal/platform/config"
	"shiftguard/internal/platform/logger"
	"shiftguard/internal/platform/postgres/migrate"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate up|down",
	Short:     "Apply or roll back the database schema",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(migrate.Up), string(migrate.Down)},
	RunE:      runMigrate,
}

func runMigrate(_ *cobra.Command, args []string) error {
	direction, err := migrate.ParseDirection(args[0])
	if err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := migrate.Run(cfg.DatabaseURL, direction); err != nil {
		return err
	}
	log.Info("migrations applied", "direction", string(direction))
	return nil
}
