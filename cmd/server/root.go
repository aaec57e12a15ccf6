package main

import (
	"github.com/spf13/cobra"

	"github.com/keyxmakerx/userservice/internal/config"
)

// NewRootCmd creates the root command. Running it without a subcommand
// starts the server.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "userservice",
		Short: "User account service",
		Long: `userservice handles account registration, login, password change
and profile lookup, with sessions stored in Redis.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())

	return cmd
}

// loadConfig loads configuration and installs the global logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	setupLogging(cfg)
	return cfg, nil
}
