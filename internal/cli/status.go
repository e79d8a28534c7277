package cli

import (
	"github.com/spf13/cobra"

	"vibeguard/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show demo context and on-chain contract configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Status(cmd.Context())
	},
}

var (
	checkToken   string
	checkTokenID string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate one token's signals and risk without executing",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Check(cmd.Context(), app.CheckOptions{
			TokenSymbol: checkToken,
			TokenID:     checkTokenID,
		})
	},
}

func init() {
	checkCmd.Flags().StringVar(&checkToken, "token", "", "Token symbol (e.g. PEPE)")
	checkCmd.Flags().StringVar(&checkTokenID, "token-id", "", "Market-data identifier (defaults to lower-cased symbol)")
}
