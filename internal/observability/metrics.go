package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the liquidation monitor.
type Metrics struct {
	// --- Ingestion ---
	IngestEvents        *prometheus.CounterVec
	IngestDeltaDuration prometheus.Histogram
	IngestBacklog       prometheus.Gauge

	// --- Position store ---
	PositionsTracked       prometheus.Gauge
	PositionsEvicted       prometheus.Counter
	PositionCreateFailures prometheus.Counter

	// --- Sweep ---
	SweepTicks     prometheus.Counter
	SweepSkipped   *prometheus.CounterVec
	SweepDuration  prometheus.Histogram
	SweepEvaluated prometheus.Counter
	NearLiquidable prometheus.Counter

	// --- Liquidation execution ---
	LiquidationAttempts prometheus.Counter
	LiquidationOutcomes *prometheus.CounterVec
	LiquidationDuration prometheus.Histogram

	// --- Price oracle ---
	PriceRefreshCycles prometheus.Counter
	PriceFetchErrors   *prometheus.CounterVec
	PriceLastRefresh   prometheus.Gauge

	// --- Chain transport ---
	ChainRequests       *prometheus.CounterVec
	ChainEndpointErrors *prometheus.CounterVec

	// --- Audit persistence ---
	AuditRowsWritten prometheus.Counter
	AuditBatchDur    prometheus.Histogram
	AuditErrors      *prometheus.CounterVec
	AuditDrops       prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	sweepBuckets := []float64{
		0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005,
		0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1,
	}

	submitBuckets := []float64{
		0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
	}

	return &Metrics{
		IngestEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_ingest_events_total",
			Help: "Stream events consumed by the ingestion loop",
		}, []string{"kind"}),

		IngestDeltaDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "liq_ingest_delta_apply_duration_seconds",
			Help:    "Time to apply one position delta to the store",
			Buckets: sweepBuckets,
		}),

		IngestBacklog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "liq_ingest_backlog",
			Help: "Unconsumed events in the ingestion channel",
		}),

		PositionsTracked: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "liq_positions_tracked",
			Help: "Open positions currently in the store",
		}),

		PositionsEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_positions_evicted_total",
			Help: "Positions removed after their collateral reached zero",
		}),

		PositionCreateFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_position_create_failures_total",
			Help: "Position creations dropped because the LLTV lookup failed",
		}),

		SweepTicks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_sweep_ticks_total",
			Help: "Sweep timer ticks observed",
		}),

		SweepSkipped: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_sweep_skipped_total",
			Help: "Sweep ticks skipped before evaluation",
		}, []string{"reason"}),

		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "liq_sweep_duration_seconds",
			Help:    "Duration of one full store sweep",
			Buckets: sweepBuckets,
		}),

		SweepEvaluated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_sweep_positions_evaluated_total",
			Help: "Positions evaluated for liquidation eligibility",
		}),

		NearLiquidable: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_near_liquidable_total",
			Help: "Positions observed inside the near-liquidable band",
		}),

		LiquidationAttempts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_liquidation_attempts_total",
			Help: "Liquidation calls built and submitted",
		}),

		LiquidationOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_liquidation_outcomes_total",
			Help: "Liquidation attempt outcomes",
		}, []string{"outcome"}),

		LiquidationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "liq_liquidation_submit_duration_seconds",
			Help:    "Route build plus submission time per attempt",
			Buckets: submitBuckets,
		}),

		PriceRefreshCycles: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_price_refresh_cycles_total",
			Help: "Completed price refresh cycles",
		}),

		PriceFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_price_fetch_errors_total",
			Help: "Per-asset price fetch failures",
		}, []string{"ticker"}),

		PriceLastRefresh: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "liq_price_last_refresh_timestamp_seconds",
			Help: "Unix time of the last completed refresh cycle",
		}),

		ChainRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_chain_requests_total",
			Help: "Outbound chain RPC requests by method",
		}, []string{"method"}),

		ChainEndpointErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_chain_endpoint_errors_total",
			Help: "RPC failures per endpoint before fallback",
		}, []string{"endpoint"}),

		AuditRowsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_audit_rows_written_total",
			Help: "Liquidation audit rows persisted",
		}),

		AuditBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "liq_audit_batch_duration_seconds",
			Help:    "Audit batch flush duration",
			Buckets: sweepBuckets,
		}),

		AuditErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "liq_audit_errors_total",
			Help: "Audit persistence errors by stage",
		}, []string{"stage"}),

		AuditDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "liq_audit_drops_total",
			Help: "Audit records dropped because the channel was full",
		}),
	}
}
