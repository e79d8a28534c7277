package feeds

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SentimentOptions parameterise the sentiment feed client.
type SentimentOptions struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	CacheTTL    time.Duration
	StaleWindow time.Duration
}

// SentimentClient fetches social sentiment with TTL caching and
// stale-on-error fallback.
type SentimentClient struct {
	opts    SentimentOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	cache   *ttlCache[SentimentSignal]
	now     func() time.Time
}

// NewSentimentClient constructs a sentiment feed client.
func NewSentimentClient(opts SentimentOptions, logger zerolog.Logger) *SentimentClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Minute
	}
	staleWindow := opts.StaleWindow
	if staleWindow <= 0 {
		staleWindow = 15 * time.Minute
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.cryptoracle.io/v1"
	}

	return &SentimentClient{
		opts:    opts,
		logger:  logger.With().Str("component", "sentiment_feed").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		cache:   newTTLCache[SentimentSignal](ttl, staleWindow, nil),
		now:     time.Now,
	}
}

// Sentiment returns the signal for one symbol, serving a fresh cache hit
// without an upstream call and a stale value on retriable upstream failure.
func (c *SentimentClient) Sentiment(ctx context.Context, symbol string) (SentimentSignal, error) {
	key := strings.ToUpper(strings.TrimSpace(symbol))
	if key == "" {
		return SentimentSignal{}, fmt.Errorf("%w: empty symbol", ErrInvalidInput)
	}

	if cached, ok := c.cache.fresh(key); ok {
		return cached, nil
	}

	signal, err := c.fetch(ctx, key)
	if err == nil {
		c.cache.put(key, signal)
		return signal, nil
	}

	if retriable(err) {
		if stale, ok := c.cache.stale(key); ok {
			c.logger.Warn().Err(err).Str("token", key).Msg("serving stale sentiment after upstream failure")
			return stale, nil
		}
	}
	if isRateLimited(err) {
		return SentimentSignal{}, fmt.Errorf("%w: %s", ErrRateLimited, err)
	}
	return SentimentSignal{}, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
}

// MultiSentiment fetches several symbols, keeping per-symbol failures
// independent; symbols that fail are simply absent from the result.
func (c *SentimentClient) MultiSentiment(ctx context.Context, symbols []string) (map[string]SentimentSignal, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty symbol list", ErrInvalidInput)
	}

	out := make(map[string]SentimentSignal, len(symbols))
	for _, symbol := range symbols {
		signal, err := c.Sentiment(ctx, symbol)
		if err != nil {
			c.logger.Debug().Err(err).Str("token", symbol).Msg("multi sentiment fetch failed")
			continue
		}
		out[signal.Token] = signal
	}
	return out, nil
}

type sentimentResponse struct {
	Score    *float64 `json:"score"`
	Positive *float64 `json:"positive"`
	Negative *float64 `json:"negative"`
	Sources  []string `json:"sources"`
}

func (c *SentimentClient) fetch(ctx context.Context, symbol string) (SentimentSignal, error) {
	endpoint := fmt.Sprintf("%s/sentiment/%s", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SentimentSignal{}, err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return SentimentSignal{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return SentimentSignal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return SentimentSignal{}, &UpstreamError{Feed: "sentiment", Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	var body sentimentResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return SentimentSignal{}, fmt.Errorf("parse sentiment payload: %w", err)
	}

	score, err := resolveScore(body)
	if err != nil {
		return SentimentSignal{}, err
	}

	return SentimentSignal{
		Token:     symbol,
		Score:     score,
		Timestamp: c.now(),
		Sources:   body.Sources,
	}, nil
}

// resolveScore prefers the structured positive ratio over the flat score.
// Either field may arrive on a 0-1 or 0-100 scale.
func resolveScore(body sentimentResponse) (float64, error) {
	switch {
	case body.Positive != nil:
		return clampScore(normalizeRatio(*body.Positive) * 100), nil
	case body.Score != nil:
		score := *body.Score
		if score <= 1.5 && score >= 0 {
			score *= 100
		}
		return clampScore(score), nil
	default:
		return 0, fmt.Errorf("sentiment payload missing score")
	}
}

// FallbackSentiment deterministically fabricates a sentiment signal from the
// symbol's character codes, for callers that need a non-failing default.
// Explicit opt-in only; the gateway never silently substitutes it.
func FallbackSentiment(symbol string) SentimentSignal {
	key := strings.ToUpper(strings.TrimSpace(symbol))

	seed := 0
	for _, r := range key {
		seed += int(r)
	}
	random := func(scale float64) float64 {
		return float64((seed*9301+49297)%233280) / 233280 * scale
	}

	base := 0.4 + random(0.4) // 0.4 - 0.8
	return SentimentSignal{
		Token:     key,
		Score:     math.Round(base * 100),
		Timestamp: time.Now(),
		Sources:   nil,
		Fallback:  true,
	}
}

var _ SentimentSource = (*SentimentClient)(nil)
