package feeds

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSentimentEmptySymbol(t *testing.T) {
	c := NewSentimentClient(SentimentOptions{}, noopLogger())
	if _, err := c.Sentiment(context.Background(), "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("空 symbol 应返回 ErrInvalidInput, 实际 %v", err)
	}
}

func TestSentimentFreshCacheSkipsUpstream(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"score": 72, "sources": ["twitter"]}`))
	}))
	defer srv.Close()

	c := NewSentimentClient(SentimentOptions{BaseURL: srv.URL, CacheTTL: time.Minute}, noopLogger())

	first, err := c.Sentiment(context.Background(), "bnb")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if first.Score != 72 || first.Token != "BNB" {
		t.Fatalf("unexpected signal: %+v", first)
	}

	second, err := c.Sentiment(context.Background(), "BNB")
	if err != nil {
		t.Fatalf("cached fetch failed: %v", err)
	}
	if second.Score != 72 {
		t.Fatalf("unexpected cached signal: %+v", second)
	}
	if calls.Load() != 1 {
		t.Fatalf("TTL 内的第二次调用不应请求上游, 实际请求 %d 次", calls.Load())
	}
}

func TestSentimentStaleOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"score": 33}`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSentimentClient(SentimentOptions{
		BaseURL:     srv.URL,
		CacheTTL:    time.Nanosecond, // force immediate expiry
		StaleWindow: time.Hour,
	}, noopLogger())

	if _, err := c.Sentiment(context.Background(), "BNB"); err != nil {
		t.Fatalf("initial fetch failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	signal, err := c.Sentiment(context.Background(), "BNB")
	if err != nil {
		t.Fatalf("stale fallback should succeed: %v", err)
	}
	if signal.Score != 33 {
		t.Fatalf("stale value must be returned unchanged, got %+v", signal)
	}
}

func TestSentimentRateLimitWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewSentimentClient(SentimentOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := c.Sentiment(context.Background(), "BNB"); !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestSentimentHardFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewSentimentClient(SentimentOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := c.Sentiment(context.Background(), "BNB"); !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestResolveScoreNormalisation(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	cases := []struct {
		name string
		body sentimentResponse
		want float64
	}{
		{"ratio positive", sentimentResponse{Positive: f(0.73)}, 73},
		{"percent positive", sentimentResponse{Positive: f(73)}, 73},
		{"ratio score", sentimentResponse{Score: f(0.6)}, 60},
		{"percent score", sentimentResponse{Score: f(60)}, 60},
		{"overrange clamped", sentimentResponse{Score: f(140)}, 100},
	}
	for _, tc := range cases {
		got, err := resolveScore(tc.body)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	if _, err := resolveScore(sentimentResponse{}); err == nil {
		t.Fatal("missing score fields should error")
	}
}

func TestFallbackSentimentDeterministic(t *testing.T) {
	a := FallbackSentiment("bnb")
	b := FallbackSentiment("BNB")
	if a.Score != b.Score {
		t.Fatalf("fallback must be deterministic per symbol: %v vs %v", a.Score, b.Score)
	}
	if !a.Fallback {
		t.Fatal("fallback signal must be flagged")
	}
	if a.Score < 40 || a.Score > 80 {
		t.Fatalf("fallback score out of expected 40-80 band: %v", a.Score)
	}
}
