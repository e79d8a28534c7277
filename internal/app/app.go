// Package app aggregates configuration and shared dependencies behind the
// CLI commands.
package app

import (
	"context"
	"errors"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"vibeguard/internal/chain"
	"vibeguard/internal/config"
	"vibeguard/internal/democtx"
	"vibeguard/internal/feeds"
	"vibeguard/internal/metrics"
	"vibeguard/internal/monitor"
	"vibeguard/internal/risk"
	"vibeguard/internal/scheduler"
	"vibeguard/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) subscriptionStore() *storage.SubscriptionStore {
	return storage.NewSubscriptionStore(a.Config.Storage.DataDir)
}

func (a *App) historyStore() *storage.HistoryStore {
	return storage.NewHistoryStore(a.Config.Storage.DataDir, a.Config.Storage.HistoryLimit)
}

func (a *App) sampleStore() *storage.SampleStore {
	return storage.NewSampleStore(a.Config.Storage.DataDir, a.Config.Storage.MaxRiskSamples)
}

func (a *App) newFeeds() (*feeds.SentimentClient, *feeds.PriceClient) {
	sentiment := feeds.NewSentimentClient(feeds.SentimentOptions{
		BaseURL:     a.Config.Sentiment.BaseURL,
		APIKey:      a.Config.Sentiment.APIKey,
		Timeout:     a.Config.Sentiment.RequestTimeout,
		CacheTTL:    a.Config.Sentiment.CacheTTL,
		StaleWindow: a.Config.Sentiment.StaleWindow,
	}, a.Logger)

	price := feeds.NewPriceClient(feeds.PriceOptions{
		BaseURL:     a.Config.Price.BaseURL,
		APIKey:      a.Config.Price.APIKey,
		Timeout:     a.Config.Price.RequestTimeout,
		CacheTTL:    a.Config.Price.CacheTTL,
		StaleWindow: a.Config.Price.StaleWindow,
	}, a.Logger)

	return sentiment, price
}

func (a *App) newAnalyzer() *risk.Service {
	return risk.NewService(risk.Options{
		BaseURL:               a.Config.Risk.BaseURL,
		APIKey:                a.Config.Risk.APIKey,
		ModelHigh:             a.Config.Risk.ModelHigh,
		ModelLow:              a.Config.Risk.ModelLow,
		FallbackModels:        a.Config.Risk.FallbackModels,
		BadSentimentThreshold: a.Config.Risk.BadSentimentThreshold,
		Timeout:               a.Config.Risk.RequestTimeout,
		ModelListTTL:          a.Config.Risk.ModelListTTL,
		ReportOutcomes:        a.Config.Risk.ReportOutcomes,
	}, a.Logger)
}

func (a *App) newGateway() *chain.Gateway {
	return chain.NewGateway(chain.Options{
		RPCURL:          a.Config.Chain.RPCURL,
		PrivateKey:      a.Config.Chain.PrivateKey,
		RegistryAddress: a.Config.Chain.RegistryAddress,
		RouterAddress:   a.Config.Chain.RouterAddress,
		DeploymentPath:  a.Config.Chain.DeploymentPath,
		RequestTimeout:  a.Config.Chain.RequestTimeout,
		ReceiptTimeout:  a.Config.Chain.ReceiptTimeout,
	}, a.Logger)
}

// newDemoManager binds the demo slot to a file in the data dir so the
// inject command can reach a concurrently running monitor process.
func (a *App) newDemoManager() (*democtx.Manager, error) {
	m := democtx.NewManager(nil, a.Logger)
	path := filepath.Join(a.Config.Storage.DataDir, "demo_context.json")
	if err := m.Persist(path); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *App) newMonitor() (*monitor.Monitor, error) {
	demo, err := a.newDemoManager()
	if err != nil {
		return nil, err
	}
	sentiment, price := a.newFeeds()

	return monitor.New(monitor.Options{
		Cooldown:             a.Config.Monitor.Cooldown,
		AutoDisableOnExecute: a.Config.Monitor.AutoDisable,
	},
		sentiment, price,
		a.newAnalyzer(), a.newGateway(), demo,
		a.subscriptionStore(), a.historyStore(), a.sampleStore(),
		a.Logger,
	), nil
}

// Run executes the long-running monitoring loop until interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	mon, err := a.newMonitor()
	if err != nil {
		return err
	}

	if a.Config.Metrics.Enabled {
		go metrics.Serve(a.Config.Metrics.Addr, a.Logger)
	}

	sched := scheduler.New(scheduler.Options{
		Interval:      a.Config.Monitor.Interval,
		StartupDelay:  a.Config.Monitor.StartupDelay,
		SkipImmediate: a.Config.Monitor.SkipImmediate,
	}, a.Logger)

	a.Logger.Info().
		Dur("interval", a.Config.Monitor.Interval).
		Dur("cooldown", a.Config.Monitor.Cooldown).
		Msg("starting protection monitor")

	err = sched.Run(ctx, func(ctx context.Context) error {
		_, err := mon.RunOnce(ctx)
		return err
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("monitor terminated with error")
		return err
	}

	a.Logger.Info().Msg("protection monitor stopped")
	return nil
}

// RunOnce executes a single monitor cycle and returns its results.
func (a *App) RunOnce(ctx context.Context) ([]monitor.CycleResult, error) {
	mon, err := a.newMonitor()
	if err != nil {
		return nil, err
	}
	return mon.RunOnce(ctx)
}

// ExportOptions hold parameters for exporting recorded risk samples.
type ExportOptions struct {
	From      *time.Time
	To        *time.Time
	PNGPath   string
	CSVPath   string
	MaxPoints int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	UserAddress string
	Limit       int
}

// InjectOptions configure a demo context injection.
type InjectOptions struct {
	Token    string
	Headline string
	Type     string
	Severity string
	TTL      time.Duration
}

// CheckOptions configure a one-off evaluation without execution.
type CheckOptions struct {
	TokenSymbol string
	TokenID     string
}
