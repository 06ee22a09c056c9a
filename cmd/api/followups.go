package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var followUpsCmd = &cobra.Command{
	Use:   "run-followups",
	Short: "Run the follow-up scheduler once and print the results",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}

		app, err := NewApp(cfg, logger, false)
		if err != nil {
			return fmt.Errorf("failed to create app: %w", err)
		}
		defer app.Close()

		out, err := app.followUp.Execute(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"cutoff":  out.Cutoff,
			"summary": out.Counts(),
			"results": out.Results,
		})
	},
}
