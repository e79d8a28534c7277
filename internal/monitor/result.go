package monitor

import (
	"time"

	"vibeguard/internal/chain"
	"vibeguard/internal/feeds"
	"vibeguard/internal/risk"
	"vibeguard/internal/storage"
)

// SkipReason tags why a subscription was not evaluated this cycle.
type SkipReason string

const (
	// SkipCooldown means the subscription executed recently.
	SkipCooldown SkipReason = "cooldown"
)

// CycleResult is the per-subscription outcome of one monitor cycle.
// Exactly one state holds: Skipped is set, Err is set, or the signal and
// verdict fields are populated (with Executed present only if the execute
// condition was met).
type CycleResult struct {
	Subscription      storage.Subscription
	Skipped           SkipReason
	CooldownRemaining time.Duration
	Sentiment         *feeds.SentimentSignal
	Price             *feeds.PriceSnapshot
	Verdict           *risk.Verdict
	Executed          *chain.Result
	Err               error
}
