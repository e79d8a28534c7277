package app

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"vibeguard/internal/monitor"
)

// ReportCycle prints a per-subscription summary of one monitor cycle.
func ReportCycle(results []monitor.CycleResult) {
	if len(results) == 0 {
		fmt.Fprintln(os.Stdout, "no enabled subscriptions evaluated")
		return
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "User\tToken\tOutcome\tScore\tDetail")

	for _, r := range results {
		outcome, score, detail := summarize(r)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			r.Subscription.UserAddress, r.Subscription.TokenSymbol, outcome, score, detail)
	}
	writer.Flush()
}

func summarize(r monitor.CycleResult) (outcome, score, detail string) {
	score = "-"
	if r.Verdict != nil {
		score = fmt.Sprintf("%d", r.Verdict.RiskScore)
	}

	switch {
	case r.Err != nil:
		return "error", score, r.Err.Error()
	case r.Skipped == monitor.SkipCooldown:
		return "cooldown", score, fmt.Sprintf("%s remaining", r.CooldownRemaining.Round(time.Second))
	case r.Executed != nil && r.Executed.Success:
		return "executed", score, r.Executed.TxHash
	case r.Executed != nil:
		return "failed", score, r.Executed.Error
	default:
		detail = ""
		if r.Verdict != nil {
			detail = r.Verdict.Reason
		}
		return "evaluated", score, detail
	}
}
