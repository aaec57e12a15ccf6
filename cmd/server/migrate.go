package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/keyxmakerx/userservice/internal/database"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending SQL migrations from MIGRATIONS_PATH to the MariaDB database.`,
		RunE:  runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.NewMariaDB(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		slog.Error("migration failed",
			slog.String("path", cfg.MigrationsPath),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}
