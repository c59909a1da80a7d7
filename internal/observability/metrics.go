// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the bot.
type Metrics struct {
	// Discovery metrics
	CandidatesSeen  *prometheus.CounterVec // by adapter
	AdapterErrors   *prometheus.CounterVec // by adapter
	FilterFailures  *prometheus.CounterVec // by predicate
	CandidatesPass  prometheus.Counter
	ScanDuration    prometheus.Histogram
	EntriesRejected *prometheus.CounterVec // by gate (breaker, slots, executor)

	// Position metrics
	PositionsOpened prometheus.Counter
	PositionsClosed prometheus.Counter
	ExitsByReason   *prometheus.CounterVec
	OpenPositions   prometheus.Gauge

	// Monitoring loop metrics
	TicksSkipped     prometheus.Counter // overlapping cycles dropped
	PriceUnavailable prometheus.Counter
	ExecutionRetries prometheus.Counter
	TickDuration     prometheus.Histogram

	// Session metrics
	RealizedPnlSOL prometheus.Gauge
	PeakPnlSOL     prometheus.Gauge
	SessionHalted  prometheus.Gauge
}

// NewMetrics creates a Metrics instance with all metrics registered on the
// default registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "solana_sniper"
	}

	return &Metrics{
		CandidatesSeen: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_seen_total",
			Help:      "Candidates returned by discovery adapters.",
		}, []string{"adapter"}),
		AdapterErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adapter_errors_total",
			Help:      "Discovery adapter failures (cycle skipped for that adapter).",
		}, []string{"adapter"}),
		FilterFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_failures_total",
			Help:      "Entry predicate failures.",
		}, []string{"predicate"}),
		CandidatesPass: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_pass_total",
			Help:      "Candidates that passed the full entry pipeline.",
		}),
		ScanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scan_duration_seconds",
			Help:      "Discovery cycle duration.",
			Buckets:   prometheus.DefBuckets,
		}),
		EntriesRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_rejected_total",
			Help:      "Passing candidates rejected before opening.",
		}, []string{"gate"}),
		PositionsOpened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_opened_total",
			Help:      "Positions opened.",
		}),
		PositionsClosed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "positions_closed_total",
			Help:      "Positions fully closed.",
		}),
		ExitsByReason: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exits_total",
			Help:      "Exit fills by trigger reason, partial fills included.",
		}, []string{"reason"}),
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_positions",
			Help:      "Currently open positions.",
		}),
		TicksSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_skipped_total",
			Help:      "Monitoring ticks skipped because the previous cycle was still running.",
		}),
		PriceUnavailable: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_unavailable_total",
			Help:      "Position evaluations skipped for lack of a price.",
		}),
		ExecutionRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "execution_retries_total",
			Help:      "Exit executions that failed and will retry next tick.",
		}),
		TickDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tick_duration_seconds",
			Help:      "Monitoring cycle duration.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		RealizedPnlSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realized_pnl_sol",
			Help:      "Cumulative realized session P&L in SOL.",
		}),
		PeakPnlSOL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peak_pnl_sol",
			Help:      "Peak cumulative realized P&L in SOL.",
		}),
		SessionHalted: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "session_halted",
			Help:      "1 while the session circuit breaker is tripped.",
		}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
