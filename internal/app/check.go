package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"vibeguard/internal/feeds"
	"vibeguard/internal/risk"
)

// Check runs a one-off signal fetch and risk arbitration for a single
// token. It never executes on-chain and never consumes an injected
// context: this is the dry-run surface.
func (a *App) Check(ctx context.Context, opts CheckOptions) error {
	symbol := strings.ToUpper(strings.TrimSpace(opts.TokenSymbol))
	if symbol == "" {
		return errors.New("--token is required")
	}
	tokenID := strings.TrimSpace(opts.TokenID)
	if tokenID == "" {
		tokenID = strings.ToLower(symbol)
	}

	sentimentClient, priceClient := a.newFeeds()

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
		sentiment, sentErr = sentimentClient.Sentiment(ctx, symbol)
	}()
	go func() {
		defer wg.Done()
		price, priceErr = priceClient.Price(ctx, tokenID)
	}()
	wg.Wait()

	if sentErr != nil {
		// Dry-run surface: a dead sentiment upstream degrades to the
		// deterministic fallback instead of failing the command.
		a.Logger.Warn().Err(sentErr).Str("token", symbol).Msg("sentiment unavailable; using fallback")
		sentiment = feeds.FallbackSentiment(symbol)
	}
	if priceErr != nil {
		return fmt.Errorf("price: %w", priceErr)
	}

	demo, err := a.newDemoManager()
	if err != nil {
		return err
	}
	injected := demo.ActiveContext(symbol)

	verdict := a.newAnalyzer().AnalyzeRisk(ctx, risk.Input{
		Sentiment: sentiment,
		Price:     price,
		Injected:  injected,
	})

	fmt.Fprintf(os.Stdout, "token: %s\n", symbol)
	fmt.Fprintf(os.Stdout, "sentiment: %.1f", sentiment.Score)
	if sentiment.Fallback {
		fmt.Fprint(os.Stdout, " (fallback)")
	}
	fmt.Fprintln(os.Stdout)
	fmt.Fprintf(os.Stdout, "price: %s USD (%s%% 24h)\n", price.Price.String(), price.PriceChange24h.StringFixed(2))
	if injected != nil {
		fmt.Fprintf(os.Stdout, "emergency context: [%s] %s\n", injected.Severity, injected.Headline)
	}
	fmt.Fprintf(os.Stdout, "risk score: %d (model %s)\n", verdict.RiskScore, verdict.AIModel)
	fmt.Fprintf(os.Stdout, "should exit: %t\n", verdict.ShouldExit)
	if verdict.Reason != "" {
		fmt.Fprintf(os.Stdout, "reason: %s\n", verdict.Reason)
	}
	return nil
}
