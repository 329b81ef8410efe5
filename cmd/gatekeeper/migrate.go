package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"gatekeeper/internal/platform/config"
	"gatekeeper/internal/platform/logger"
	"gatekeeper/internal/platform/postgres"
)

func newMigrateCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply the embedded database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if list {
				migrations, err := postgres.Migrations()
				if err != nil {
					return err
				}
				for _, m := range migrations {
					fmt.Fprintln(cmd.OutOrStdout(), m.Version)
				}
				return nil
			}

			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.Database.URL == "" {
				return errors.New("GATEKEEPER_DATABASE_URL is required")
			}
			log := logger.New(cfg.Log.Level, cfg.Log.Format)

			db, err := postgres.Open(cmd.Context(), cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			applied, err := postgres.Migrate(cmd.Context(), db, log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the embedded migrations without connecting")
	return cmd
}
