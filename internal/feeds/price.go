package feeds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// PriceOptions parameterise the spot price feed client.
type PriceOptions struct {
	BaseURL     string
	APIKey      string
	Timeout     time.Duration
	CacheTTL    time.Duration
	StaleWindow time.Duration
}

// PriceClient fetches spot prices from a CoinGecko-compatible endpoint with
// TTL caching and stale-on-error fallback. Unlike the sentiment side it has
// no fabricated default: price data is either real, stale-but-real, or an
// error.
type PriceClient struct {
	opts    PriceOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	cache   *ttlCache[PriceSnapshot]
}

// NewPriceClient constructs a price feed client.
func NewPriceClient(opts PriceOptions, logger zerolog.Logger) *PriceClient {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	staleWindow := opts.StaleWindow
	if staleWindow <= 0 {
		staleWindow = 10 * time.Minute
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	return &PriceClient{
		opts:    opts,
		logger:  logger.With().Str("component", "price_feed").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		cache:   newTTLCache[PriceSnapshot](ttl, staleWindow, nil),
	}
}

// Price returns the snapshot for one token id.
func (c *PriceClient) Price(ctx context.Context, tokenID string) (PriceSnapshot, error) {
	snapshots, err := c.Prices(ctx, []string{tokenID})
	if err != nil {
		return PriceSnapshot{}, err
	}
	snap, ok := snapshots[strings.ToLower(strings.TrimSpace(tokenID))]
	if !ok {
		return PriceSnapshot{}, fmt.Errorf("%w: no data for token id %q", ErrUpstreamUnavailable, tokenID)
	}
	return snap, nil
}

// Prices returns snapshots for a batch of token ids in one upstream call,
// serving fully cached batches without a request.
func (c *PriceClient) Prices(ctx context.Context, tokenIDs []string) (map[string]PriceSnapshot, error) {
	ids := normalizeIDs(tokenIDs)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: empty token id list", ErrInvalidInput)
	}

	out := make(map[string]PriceSnapshot, len(ids))
	var misses []string
	for _, id := range ids {
		if cached, ok := c.cache.fresh(id); ok {
			out[id] = cached
		} else {
			misses = append(misses, id)
		}
	}
	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.fetch(ctx, misses)
	if err == nil {
		for id, snap := range fetched {
			c.cache.put(id, snap)
			out[id] = snap
		}
		return out, nil
	}

	if retriable(err) {
		served := 0
		for _, id := range misses {
			if stale, ok := c.cache.stale(id); ok {
				out[id] = stale
				served++
			}
		}
		if served == len(misses) {
			c.logger.Warn().Err(err).Strs("ids", misses).Msg("serving stale prices after upstream failure")
			return out, nil
		}
	}
	if isRateLimited(err) {
		return nil, fmt.Errorf("%w: %s", ErrRateLimited, err)
	}
	return nil, fmt.Errorf("%w: %s", ErrUpstreamUnavailable, err)
}

type priceEntry struct {
	USD       decimal.Decimal `json:"usd"`
	USDVol24h decimal.Decimal `json:"usd_24h_vol"`
	USDChg24h decimal.Decimal `json:"usd_24h_change"`
}

func (c *PriceClient) fetch(ctx context.Context, ids []string) (map[string]PriceSnapshot, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_vol", "true")
	params.Set("include_24hr_change", "true")

	endpoint := c.baseURL + "/simple/price?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.opts.APIKey != "" {
		req.Header.Set("x-cg-pro-api-key", c.opts.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{Feed: "price", Status: resp.StatusCode, Message: strings.TrimSpace(string(payload))}
	}

	var body map[string]priceEntry
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("parse price payload: %w", err)
	}

	out := make(map[string]PriceSnapshot, len(body))
	for id, entry := range body {
		out[id] = PriceSnapshot{
			Token:          id,
			Price:          entry.USD,
			Volume24h:      entry.USDVol24h,
			PriceChange24h: entry.USDChg24h,
		}
	}
	return out, nil
}

func normalizeIDs(tokenIDs []string) []string {
	out := make([]string, 0, len(tokenIDs))
	seen := make(map[string]bool, len(tokenIDs))
	for _, id := range tokenIDs {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var _ PriceSource = (*PriceClient)(nil)
