package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"vibeguard/internal/democtx"
)

// cannedHeadlines maps scenario types to ready-made headlines so a demo
// operator does not have to type prose mid-presentation.
var cannedHeadlines = map[string]string{
	"BRIDGE_HACK":      "Major security breach detected on BNB bridge; cascading liquidity risk expected.",
	"ORACLE_FAILURE":   "Critical oracle outage detected; pricing integrity at risk for major pools.",
	"LIQUIDITY_CRUNCH": "Severe liquidity crunch detected; slippage and market impact risk elevated.",
}

// Inject places an emergency narrative into the shared demo slot.
func (a *App) Inject(opts InjectOptions) error {
	headline := strings.TrimSpace(opts.Headline)
	if headline == "" && opts.Type != "" {
		headline = cannedHeadlines[strings.ToUpper(strings.TrimSpace(opts.Type))]
	}
	if strings.TrimSpace(opts.Token) == "" || headline == "" {
		return errors.New("token and headline (or a supported --type) are required")
	}

	ttl := opts.TTL
	if ttl <= 0 {
		ttl = a.Config.Demo.DefaultTTL
	}

	demo, err := a.newDemoManager()
	if err != nil {
		return err
	}

	ctx := demo.Inject(opts.Token, headline, democtx.ParseSeverity(opts.Severity), ttl)

	fmt.Fprintf(os.Stdout, "injected %s context for %s, expires %s\n",
		ctx.Severity, ctx.Token, ctx.ExpiresAt.UTC().Format("15:04:05"))
	return nil
}

// ClearDemo empties the shared demo slot.
func (a *App) ClearDemo() error {
	demo, err := a.newDemoManager()
	if err != nil {
		return err
	}
	demo.Clear()
	fmt.Fprintln(os.Stdout, "demo context cleared")
	return nil
}
