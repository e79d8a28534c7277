package app

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"vibeguard/internal/storage"
)

// Subscribe upserts one protection subscription; identity is the
// case-insensitive (user, token) pair.
func (a *App) Subscribe(sub storage.Subscription) error {
	stored, err := a.subscriptionStore().Upsert(sub)
	if err != nil {
		return err
	}

	a.Logger.Info().
		Str("user", stored.UserAddress).
		Str("token", stored.TokenSymbol).
		Int("threshold", stored.RiskThreshold).
		Msg("subscription saved")

	fmt.Fprintf(os.Stdout, "subscribed %s for %s (threshold %d, enabled %t)\n",
		stored.TokenSymbol, stored.UserAddress, stored.RiskThreshold, stored.Enabled)
	return nil
}

// ListSubscriptions prints the stored subscription set.
func (a *App) ListSubscriptions() error {
	subs, err := a.subscriptionStore().Load()
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Fprintln(os.Stdout, "no subscriptions found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "User\tToken\tAmount\tThreshold\tEnabled\tLast Executed")

	for _, sub := range subs {
		last := "-"
		if sub.LastExecutedAt > 0 {
			last = time.UnixMilli(sub.LastExecutedAt).UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%d\t%s\t%s\n",
			sub.UserAddress,
			sub.TokenSymbol,
			sub.Amount,
			sub.RiskThreshold,
			strconv.FormatBool(sub.Enabled),
			last,
		)
	}

	writer.Flush()
	return nil
}
