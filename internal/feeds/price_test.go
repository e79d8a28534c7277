package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const priceBody = `{
  "binancecoin": {"usd": 612.4, "usd_24h_vol": 1830000000, "usd_24h_change": -15.2},
  "ethereum": {"usd": 3120.55, "usd_24h_vol": 9400000000, "usd_24h_change": 2.1}
}`

func TestPriceBatchFetch(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if got := r.URL.Query().Get("ids"); got != "binancecoin,ethereum" {
			t.Errorf("unexpected ids param: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(priceBody))
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{BaseURL: srv.URL, CacheTTL: time.Minute}, noopLogger())

	snaps, err := c.Prices(context.Background(), []string{"binancecoin", "Ethereum", "binancecoin"})
	if err != nil {
		t.Fatalf("batch fetch failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("expected 2 snapshots, got %d", len(snaps))
	}
	if snaps["binancecoin"].PriceChange24h.InexactFloat64() != -15.2 {
		t.Fatalf("unexpected change: %+v", snaps["binancecoin"])
	}

	// Second batch fully served from cache.
	if _, err := c.Prices(context.Background(), []string{"ethereum"}); err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("TTL 内的批量调用不应请求上游, 实际请求 %d 次", calls.Load())
	}
}

func TestPriceStaleOnServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(priceBody))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{
		BaseURL:     srv.URL,
		CacheTTL:    time.Nanosecond,
		StaleWindow: time.Hour,
	}, noopLogger())

	if _, err := c.Price(context.Background(), "binancecoin"); err != nil {
		t.Fatalf("initial fetch failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	snap, err := c.Price(context.Background(), "binancecoin")
	if err != nil {
		t.Fatalf("stale fallback should succeed: %v", err)
	}
	if snap.Price.InexactFloat64() != 612.4 {
		t.Fatalf("stale value must be returned unchanged: %+v", snap)
	}
}

func TestPriceMissingTokenID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewPriceClient(PriceOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := c.Price(context.Background(), "not-a-coin"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestPriceEmptyInput(t *testing.T) {
	c := NewPriceClient(PriceOptions{}, noopLogger())
	if _, err := c.Prices(context.Background(), nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := c.Price(context.Background(), ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
