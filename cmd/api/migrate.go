package main

import (
	"github.com/spf13/cobra"

	"github.com/xavierca1/lead-followup/internal/config"
	"github.com/xavierca1/lead-followup/internal/infra/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create tables and indexes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// only the database section is needed here
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}

		db, err := database.NewDBConnection(cfg.Database)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := database.Migrate(cmd.Context(), db); err != nil {
			return err
		}
		cmd.Println("schema is up to date")
		return nil
	},
}
