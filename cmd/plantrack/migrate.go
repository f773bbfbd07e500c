package main

import (
	"github.com/spf13/cobra"

	"github.com/anand-fs/plantrack/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			db, err := database.Connect(cfg)
			if err != nil {
				logger.WithError(err).Error("Failed to connect to database")
				return err
			}
			if err := database.Migrate(db); err != nil {
				logger.WithError(err).Error("Failed to run migrations")
				return err
			}

			logger.WithField("driver", cfg.Database.Driver).Info("Migrations applied")
			return nil
		},
	}
}
