package cli

import (
	"github.com/spf13/cobra"

	"vibeguard/internal/app"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the protection monitoring loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Run(cmd.Context())
	},
}

var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Execute a single monitor cycle and print the results",
	RunE: func(cmd *cobra.Command, args []string) error {
		results, err := getApp().RunOnce(cmd.Context())
		if err != nil {
			return err
		}
		app.ReportCycle(results)
		return nil
	},
}
