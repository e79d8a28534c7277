package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"vibeguard/internal/storage"
)

var (
	subUser      string
	subToken     string
	subTokenID   string
	subAddress   string
	subAmount    string
	subThreshold int
	subDisabled  bool
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Create or update a protection subscription",
	RunE: func(cmd *cobra.Command, args []string) error {
		if subUser == "" || subToken == "" {
			return fmt.Errorf("--user and --token are required")
		}
		if subThreshold < 0 || subThreshold > 100 {
			return fmt.Errorf("--threshold must be within [0, 100]")
		}

		return getApp().Subscribe(storage.Subscription{
			UserAddress:   subUser,
			TokenSymbol:   subToken,
			TokenID:       subTokenID,
			TokenAddress:  subAddress,
			Amount:        subAmount,
			Enabled:       !subDisabled,
			RiskThreshold: subThreshold,
		})
	},
}

var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "List stored protection subscriptions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().ListSubscriptions()
	},
}

func init() {
	subscribeCmd.Flags().StringVar(&subUser, "user", "", "Subscriber wallet address")
	subscribeCmd.Flags().StringVar(&subToken, "token", "", "Token symbol (e.g. PEPE)")
	subscribeCmd.Flags().StringVar(&subTokenID, "token-id", "", "Market-data identifier (e.g. pepe)")
	subscribeCmd.Flags().StringVar(&subAddress, "token-address", "", "Token contract address")
	subscribeCmd.Flags().StringVar(&subAmount, "amount", "", "Position amount to protect")
	subscribeCmd.Flags().IntVar(&subThreshold, "threshold", 75, "Risk score threshold that triggers protection")
	subscribeCmd.Flags().BoolVar(&subDisabled, "disabled", false, "Create the subscription in disabled state")
}
