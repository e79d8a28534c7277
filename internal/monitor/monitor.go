// Package monitor runs the protective control loop: load subscriptions,
// evaluate each against live signals and risk arbitration, and execute the
// on-chain protection when risk crosses the configured threshold.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"vibeguard/internal/chain"
	"vibeguard/internal/democtx"
	"vibeguard/internal/feeds"
	"vibeguard/internal/metrics"
	"vibeguard/internal/risk"
	"vibeguard/internal/storage"
)

// SubscriptionStore is the slice of the persistence layer the monitor uses.
type SubscriptionStore interface {
	Load() ([]storage.Subscription, error)
	MergeTouched(touched []storage.Subscription) error
}

// HistoryAppender records executed transactions.
type HistoryAppender interface {
	Append(item storage.TxHistoryItem) error
}

// SampleAppender retains per-cycle risk observations; may be nil.
type SampleAppender interface {
	Append(samples ...storage.RiskSample) error
}

// Options tune the loop.
type Options struct {
	Cooldown             time.Duration
	AutoDisableOnExecute bool
}

// Monitor owns one subscription-evaluation loop. All collaborators are
// injected so tests can supply doubles.
type Monitor struct {
	opts      Options
	sentiment feeds.SentimentSource
	price     feeds.PriceSource
	analyzer  risk.Analyzer
	executor  chain.Executor
	demo      *democtx.Manager
	subs      SubscriptionStore
	history   HistoryAppender
	samples   SampleAppender
	logger    zerolog.Logger
	now       func() time.Time

	running atomic.Bool
}

// New constructs the orchestrator.
func New(
	opts Options,
	sentiment feeds.SentimentSource,
	price feeds.PriceSource,
	analyzer risk.Analyzer,
	executor chain.Executor,
	demo *democtx.Manager,
	subs SubscriptionStore,
	history HistoryAppender,
	samples SampleAppender,
	logger zerolog.Logger,
) *Monitor {
	if opts.Cooldown <= 0 {
		opts.Cooldown = 10 * time.Minute
	}
	return &Monitor{
		opts:      opts,
		sentiment: sentiment,
		price:     price,
		analyzer:  analyzer,
		executor:  executor,
		demo:      demo,
		subs:      subs,
		history:   history,
		samples:   samples,
		logger:    logger.With().Str("component", "monitor").Logger(),
		now:       time.Now,
	}
}

// RunOnce executes a single cycle over all enabled subscriptions. A call
// arriving while a cycle is running returns an empty result set and no
// error: that is the single-flight contract for the whole loop. The only
// hard failure is an unreadable subscription store.
func (m *Monitor) RunOnce(ctx context.Context) ([]CycleResult, error) {
	if !m.running.CompareAndSwap(false, true) {
		m.logger.Debug().Msg("cycle already running; skipping")
		metrics.CyclesSkipped.Inc()
		return []CycleResult{}, nil
	}
	defer m.running.Store(false)

	all, err := m.subs.Load()
	if err != nil {
		return nil, fmt.Errorf("load subscriptions: %w", err)
	}

	enabled := make([]storage.Subscription, 0, len(all))
	for _, sub := range all {
		if sub.Enabled {
			enabled = append(enabled, sub)
		}
	}

	m.logger.Info().Int("enabled", len(enabled)).Msg("cycle started")

	results := make([]CycleResult, 0, len(enabled))
	var touched []storage.Subscription
	var cycleSamples []storage.RiskSample

	for i := range enabled {
		result := m.processSubscription(ctx, &enabled[i])
		results = append(results, result)

		switch {
		case result.Err != nil:
			metrics.SubscriptionsProcessed.WithLabelValues("error").Inc()
		case result.Skipped != "":
			metrics.SubscriptionsProcessed.WithLabelValues("cooldown").Inc()
		default:
			metrics.SubscriptionsProcessed.WithLabelValues("evaluated").Inc()
		}

		if result.Executed != nil && result.Executed.Success {
			touched = append(touched, enabled[i])
		}
		if result.Verdict != nil && result.Sentiment != nil {
			cycleSamples = append(cycleSamples, storage.RiskSample{
				Timestamp:      m.now().UnixMilli(),
				Token:          enabled[i].TokenSymbol,
				SentimentScore: result.Sentiment.Score,
				RiskScore:      result.Verdict.RiskScore,
				ShouldExit:     result.Verdict.ShouldExit,
			})
		}
	}

	if err := m.subs.MergeTouched(touched); err != nil {
		m.logger.Error().Err(err).Msg("failed to persist subscription updates")
	}
	if m.samples != nil && len(cycleSamples) > 0 {
		if err := m.samples.Append(cycleSamples...); err != nil {
			m.logger.Error().Err(err).Msg("failed to persist risk samples")
		}
	}

	metrics.CyclesTotal.Inc()
	m.logger.Info().Int("results", len(results)).Msg("cycle finished")
	return results, nil
}

// processSubscription runs steps 1-5 for one subscription; every failure is
// captured in the result so the remaining subscriptions still run.
func (m *Monitor) processSubscription(ctx context.Context, sub *storage.Subscription) (result CycleResult) {
	result.Subscription = *sub
	logger := m.logger.With().
		Str("user", sub.UserAddress).
		Str("token", sub.TokenSymbol).
		Logger()

	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("panic during evaluation: %v", r)
			logger.Error().Interface("panic", r).Msg("subscription evaluation panicked")
		}
	}()

	// Cooldown: no upstream calls at all for a cooling-down subscription.
	if sub.LastExecutedAt > 0 {
		elapsed := m.now().Sub(time.UnixMilli(sub.LastExecutedAt))
		if elapsed < m.opts.Cooldown {
			result.Skipped = SkipCooldown
			result.CooldownRemaining = m.opts.Cooldown - elapsed
			logger.Debug().Dur("remaining", result.CooldownRemaining).Msg("skipped: cooldown")
			return result
		}
	}

	sentiment, price, err := m.fetchSignals(ctx, sub)
	if err != nil {
		result.Err = err
		logger.Warn().Err(err).Msg("signal fetch failed")
		return result
	}
	result.Sentiment = &sentiment
	result.Price = &price

	injected := m.lookupContext(sub.TokenSymbol)

	verdict := m.analyzer.AnalyzeRisk(ctx, risk.Input{
		Sentiment: sentiment,
		Price:     price,
		Injected:  injected,
	})
	result.Verdict = &verdict
	metrics.RiskScore.WithLabelValues(strings.ToUpper(sub.TokenSymbol)).Observe(float64(verdict.RiskScore))

	if !verdict.ShouldExit || verdict.RiskScore < sub.RiskThreshold {
		logger.Info().
			Int("score", verdict.RiskScore).
			Bool("should_exit", verdict.ShouldExit).
			Int("threshold", sub.RiskThreshold).
			Msg("no execution")
		return result
	}

	logger.Info().
		Int("score", verdict.RiskScore).
		Int("threshold", sub.RiskThreshold).
		Msg("execute condition met")

	executed := m.executor.ExecuteProtection(ctx, sub.UserAddress, sub.Amount)
	result.Executed = &executed

	if !executed.Success {
		metrics.ExecutionsTotal.WithLabelValues("failure").Inc()
		logger.Warn().Str("error", executed.Error).Msg("execution failed")
		return result
	}
	metrics.ExecutionsTotal.WithLabelValues("success").Inc()

	sub.LastExecutedAt = m.now().UnixMilli()
	if m.opts.AutoDisableOnExecute {
		sub.Enabled = false
	}
	result.Subscription = *sub

	item := storage.TxHistoryItem{
		UserAddress:  sub.UserAddress,
		TokenAddress: sub.TokenAddress,
		TxHash:       executed.TxHash,
		Timestamp:    sub.LastExecutedAt,
		Source:       storage.TxSourceMonitor,
	}
	// Router/executor metadata is best-effort decoration for explorers.
	if cfg, err := m.executor.PublicConfig(ctx); err == nil {
		item.RouterAddress = cfg.Router
		item.ExecutorAddress = cfg.RouterExecutor
	}
	if err := m.history.Append(item); err != nil {
		logger.Error().Err(err).Msg("failed to append history record")
	}

	if injected != nil {
		// One-shot by design; token-agnostic so a symbol alias mismatch
		// between trigger and consumer cannot re-arm it.
		m.demo.MarkConsumed()
	}

	logger.Info().Str("tx", executed.TxHash).Msg("execution success")
	return result
}

// fetchSignals runs the two feed reads concurrently; either failure fails
// this subscription's iteration only.
func (m *Monitor) fetchSignals(ctx context.Context, sub *storage.Subscription) (feeds.SentimentSignal, feeds.PriceSnapshot, error) {
	var (
		wg        sync.WaitGroup
		sentiment feeds.SentimentSignal
		price     feeds.PriceSnapshot
		sentErr   error
		priceErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		sentiment, sentErr = m.sentiment.Sentiment(ctx, sub.TokenSymbol)
	}()
	go func() {
		defer wg.Done()
		price, priceErr = m.price.Price(ctx, sub.TokenID)
	}()
	wg.Wait()

	if sentErr != nil {
		return feeds.SentimentSignal{}, feeds.PriceSnapshot{}, fmt.Errorf("sentiment: %w", sentErr)
	}
	if priceErr != nil {
		return feeds.SentimentSignal{}, feeds.PriceSnapshot{}, fmt.Errorf("price: %w", priceErr)
	}
	return sentiment, price, nil
}

// lookupContext checks the demo slot; the manager handles the wrapped-token
// alias (WBNB finds a context injected under BNB).
func (m *Monitor) lookupContext(tokenSymbol string) *democtx.Context {
	if m.demo == nil {
		return nil
	}
	return m.demo.ActiveContext(tokenSymbol)
}
