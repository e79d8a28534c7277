package app

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Status prints the demo slot and on-chain contract surface.
func (a *App) Status(ctx context.Context) error {
	demo, err := a.newDemoManager()
	if err != nil {
		return err
	}

	if snapshot := demo.Snapshot(); snapshot != nil {
		state := "active"
		if snapshot.Consumed {
			state = "consumed"
		}
		fmt.Fprintf(os.Stdout, "demo context: %s [%s] %q, expires %s (%s)\n",
			snapshot.Token,
			snapshot.Severity,
			snapshot.Headline,
			snapshot.ExpiresAt.UTC().Format(time.RFC3339),
			state,
		)
	} else {
		fmt.Fprintln(os.Stdout, "demo context: none")
	}

	cfg, err := a.newGateway().PublicConfig(ctx)
	if err != nil {
		// Command output stays useful with the chain side down.
		fmt.Fprintf(os.Stdout, "chain: unavailable (%v)\n", err)
		return nil
	}

	fmt.Fprintf(os.Stdout, "chain id: %d\n", cfg.ChainID)
	fmt.Fprintf(os.Stdout, "registry: %s\n", cfg.Registry)
	fmt.Fprintf(os.Stdout, "router: %s\n", cfg.Router)
	if cfg.RouterExecutor != "" {
		fmt.Fprintf(os.Stdout, "executor: %s\n", cfg.RouterExecutor)
	}
	if cfg.CreationFeeWei != "" {
		fmt.Fprintf(os.Stdout, "creation fee (wei): %s\n", cfg.CreationFeeWei)
	}
	if cfg.Warning != "" {
		fmt.Fprintf(os.Stdout, "warning: %s\n", cfg.Warning)
	}
	return nil
}
