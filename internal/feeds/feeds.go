// Package feeds wraps the volatile external read-only feeds (social
// sentiment, spot price) behind TTL caching and stale-on-error fallback.
package feeds

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/shopspring/decimal"
)

// SentimentSignal is the normalised social signal for one token symbol.
type SentimentSignal struct {
	Token     string
	Score     float64 // 0-100
	Timestamp time.Time
	Sources   []string
	Fallback  bool
}

// PriceSnapshot is one spot observation for a price-feed token id.
type PriceSnapshot struct {
	Token          string
	Price          decimal.Decimal
	Volume24h      decimal.Decimal
	PriceChange24h decimal.Decimal // percent
}

// SentimentSource serves sentiment signals.
type SentimentSource interface {
	Sentiment(ctx context.Context, symbol string) (SentimentSignal, error)
	MultiSentiment(ctx context.Context, symbols []string) (map[string]SentimentSignal, error)
}

// PriceSource serves spot prices.
type PriceSource interface {
	Price(ctx context.Context, tokenID string) (PriceSnapshot, error)
	Prices(ctx context.Context, tokenIDs []string) (map[string]PriceSnapshot, error)
}

var (
	// ErrInvalidInput marks an empty or malformed feed key.
	ErrInvalidInput = errors.New("feeds: invalid input")
	// ErrUpstreamUnavailable marks a failed fetch with no usable cache.
	ErrUpstreamUnavailable = errors.New("feeds: upstream unavailable")
	// ErrRateLimited marks an upstream 429.
	ErrRateLimited = errors.New("feeds: rate limited")
)

// UpstreamError carries the upstream HTTP status for classification.
type UpstreamError struct {
	Feed    string
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s api error (%d): %s", e.Feed, e.Status, e.Message)
	}
	return fmt.Sprintf("%s api error (%d)", e.Feed, e.Status)
}

// retriable reports whether the failure is one the gateway may absorb by
// serving a stale cached value: upstream rate limits and timeouts.
func retriable(err error) bool {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Status == 429 || ue.Status >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isRateLimited(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.Status == 429
}

// normalizeRatio coerces a ratio that may arrive on a 0-1 or 0-100 scale to
// 0-1: magnitudes above 1.5 are treated as percentages.
func normalizeRatio(v float64) float64 {
	if v > 1.5 || v < -1.5 {
		v /= 100
	}
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// clampScore bounds a 0-100 score.
func clampScore(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
