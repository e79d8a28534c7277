package cli

import (
	"time"

	"github.com/spf13/cobra"

	"vibeguard/internal/app"
)

var (
	injectToken    string
	injectHeadline string
	injectType     string
	injectSeverity string
	injectTTL      time.Duration
	injectClear    bool
)

var injectCmd = &cobra.Command{
	Use:   "inject",
	Short: "Inject an emergency narrative into the demo context slot",
	RunE: func(cmd *cobra.Command, args []string) error {
		if injectClear {
			return getApp().ClearDemo()
		}

		return getApp().Inject(app.InjectOptions{
			Token:    injectToken,
			Headline: injectHeadline,
			Type:     injectType,
			Severity: injectSeverity,
			TTL:      injectTTL,
		})
	},
}

func init() {
	injectCmd.Flags().StringVar(&injectToken, "token", "BNB", "Token symbol the narrative applies to")
	injectCmd.Flags().StringVar(&injectHeadline, "headline", "", "Narrative headline (overrides --type)")
	injectCmd.Flags().StringVar(&injectType, "type", "", "Canned scenario: BRIDGE_HACK, ORACLE_FAILURE, LIQUIDITY_CRUNCH")
	injectCmd.Flags().StringVar(&injectSeverity, "severity", "CRITICAL", "Severity: HIGH or CRITICAL")
	injectCmd.Flags().DurationVar(&injectTTL, "ttl", 0, "Context lifetime (defaults to config, clamped to 15s..10m)")
	injectCmd.Flags().BoolVar(&injectClear, "clear", false, "Clear the demo context slot instead of injecting")
}
