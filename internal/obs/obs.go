// Package obs wires structured logging and process metrics the same way
// across every memoryd subcommand.
package obs

import (
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/your-org/memoryd/internal/config"
)

// NewLogger builds a process-wide slog.Logger from logging.level/format.
func NewLogger(cfg config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

// Metrics are the counters/histograms exported across the pipeline's phases.
var (
	ClipsScanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memoryd_clips_scanned_total",
		Help: "Clips processed by the scanner, by camera.",
	}, []string{"camera"})

	DetectionsByMethod = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memoryd_identities_resolved_total",
		Help: "Identity resolutions by arbiter method.",
	}, []string{"method"})

	EventsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memoryd_events_persisted_total",
		Help: "Events written to the store by the persister.",
	})

	LLMCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memoryd_llm_call_duration_seconds",
		Help:    "LLM gateway call latency by purpose.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"purpose"})

	StoreOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memoryd_store_op_duration_seconds",
		Help:    "Store operation latency by operation name.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"op"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memoryd_http_request_duration_seconds",
		Help:    "Read-only query API request latency by method, path and status.",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"method", "path", "status"})
)
