package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vibeguard/internal/app"
)

var (
	historyUser  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display executed protection transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		return getApp().History(app.HistoryOptions{
			UserAddress: historyUser,
			Limit:       historyLimit,
		})
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyUser, "user", "", "Filter by wallet address")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of records to display")
}
