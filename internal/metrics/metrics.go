// Package metrics exposes Prometheus counters for the monitor loop.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// CyclesTotal counts completed monitor cycles.
	CyclesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vibeguard",
		Subsystem: "monitor",
		Name:      "cycles_total",
		Help:      "Completed monitor cycles",
	})

	// CyclesSkipped counts cycle entries absorbed by the single-flight guard.
	CyclesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "vibeguard",
		Subsystem: "monitor",
		Name:      "cycles_skipped_total",
		Help:      "Cycle invocations skipped because a cycle was already running",
	})

	// SubscriptionsProcessed counts per-subscription iterations by outcome.
	SubscriptionsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeguard",
		Subsystem: "monitor",
		Name:      "subscriptions_processed_total",
		Help:      "Per-subscription iterations by outcome",
	}, []string{"outcome"}) // evaluated | cooldown | error

	// ExecutionsTotal counts protective executions by result.
	ExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "vibeguard",
		Subsystem: "monitor",
		Name:      "executions_total",
		Help:      "Protective executions by result",
	}, []string{"result"}) // success | failure

	// RiskScore observes verdict scores per token.
	RiskScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "vibeguard",
		Subsystem: "risk",
		Name:      "score",
		Help:      "Risk scores returned by arbitration",
		Buckets:   []float64{10, 25, 50, 70, 80, 90, 95, 100},
	}, []string{"token"})
)

// Serve exposes /metrics on addr; it blocks and is intended for a
// goroutine. A failure only logs: metrics are never load-bearing.
func Serve(addr string, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Str("addr", addr).Msg("metrics listener failed")
	}
}
