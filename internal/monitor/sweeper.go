// Package monitor runs the periodic liquidation sweep over the position
// store.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"LiqSentinel/internal/barrier"
	"LiqSentinel/internal/executor"
	"LiqSentinel/internal/observability"
	"LiqSentinel/internal/state"
)

// Skip reasons reported on the sweep-skipped counter.
const (
	skipBarrierPending = "barrier_pending"
	skipBacklog        = "backlog"
	skipPricesPending  = "prices_pending"
)

// Backlog reports pending, unapplied ingestion work. Satisfied by
// ingestion.Loop.
type Backlog interface {
	Backlog() int
}

// PriceSource is the sweep's view of the price cache.
type PriceSource interface {
	state.Prices
	Ready() bool
}

// Liquidator submits one liquidation attempt. Satisfied by
// executor.Executor.
type Liquidator interface {
	Liquidate(ctx context.Context, pos state.Position, eval state.Evaluation) executor.Result
}

// Auditor receives attempt results for persistence. May be nil when audit
// storage is not configured.
type Auditor interface {
	Record(result executor.Result)
}

// Sweeper walks a snapshot of the store on a fixed interval and hands
// liquidable positions to the executor, one at a time. A tick is skipped
// outright while the startup barrier is closed, while ingestion still has
// a backlog, or before the first price cycle lands; evaluating against
// stale or partial state would only produce doomed submissions.
type Sweeper struct {
	interval time.Duration
	store    *state.Store
	backlog  Backlog
	barrier  *barrier.Barrier
	prices   PriceSource
	exec     Liquidator
	audit    Auditor
	log      zerolog.Logger
	metrics  *observability.Metrics
}

func NewSweeper(
	interval time.Duration,
	store *state.Store,
	backlog Backlog,
	b *barrier.Barrier,
	prices PriceSource,
	exec Liquidator,
	audit Auditor,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Sweeper {
	return &Sweeper{
		interval: interval,
		store:    store,
		backlog:  backlog,
		barrier:  b,
		prices:   prices,
		exec:     exec,
		audit:    audit,
		log:      log,
		metrics:  metrics,
	}
}

// Run ticks until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if s.metrics != nil {
				s.metrics.SweepTicks.Inc()
			}
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep pass, skip checks included. Exposed for
// tests; Run is the production entry point.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	if reason := s.skipReason(); reason != "" {
		if s.metrics != nil {
			s.metrics.SweepSkipped.WithLabelValues(reason).Inc()
		}
		s.log.Debug().Str("reason", reason).Msg("sweep skipped")
		return
	}

	start := time.Now()
	snapshot := s.store.Snapshot()

	var liquidable, near int
	for _, pos := range snapshot {
		if ctx.Err() != nil {
			return
		}

		eval := pos.Evaluate(s.prices)
		if s.metrics != nil {
			s.metrics.SweepEvaluated.Inc()
		}

		switch {
		case eval.Liquidable:
			liquidable++
			// In-flight submissions run to completion even during
			// shutdown; the transport timeout bounds them.
			result := s.exec.Liquidate(context.WithoutCancel(ctx), pos, eval)
			if s.audit != nil {
				s.audit.Record(result)
			}
		case eval.NearLiquidable:
			near++
			s.logNearLiquidable(pos, eval)
		}
	}

	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.SweepDuration.Observe(elapsed.Seconds())
	}
	s.log.Debug().
		Int("positions", len(snapshot)).
		Int("liquidable", liquidable).
		Int("near_liquidable", near).
		Dur("elapsed", elapsed).
		Msg("sweep complete")
}

func (s *Sweeper) skipReason() string {
	if !s.barrier.IsOpen() {
		return skipBarrierPending
	}
	if s.backlog.Backlog() > 0 {
		return skipBacklog
	}
	if !s.prices.Ready() {
		return skipPricesPending
	}
	return ""
}

// logNearLiquidable surfaces positions approaching the threshold. Signal
// only; no execution path.
func (s *Sweeper) logNearLiquidable(pos state.Position, eval state.Evaluation) {
	if s.metrics != nil {
		s.metrics.NearLiquidable.Inc()
	}

	entry := s.log.Info().
		Str("position", pos.ID()).
		Str("pool", pos.PoolName).
		Str("user", pos.UserAddress.String()).
		Str("ltv", eval.LTV.String()).
		Str("lltv", pos.LLTV.String())

	if price, ok := pos.LiquidationPrice(s.prices); ok {
		entry = entry.Str("liquidation_price", price.String()).
			Str("current_price", s.prices.Price(pos.Collateral.Ticker).String())
	}
	entry.Msg("position approaching liquidation threshold")
}
