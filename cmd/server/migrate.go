package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/paygate/internal/config"
	"github.com/example/paygate/internal/database"
	"github.com/example/paygate/internal/logger"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database and apply the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Read()

			appLogger, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = appLogger.Sync() }()

			db, err := database.Connect(cfg.DatabaseURL, appLogger)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()

			if err := database.Migrate(db); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			appLogger.Info("database migrations completed", zap.String("database", "postgres"))
			return nil
		},
	}
}
