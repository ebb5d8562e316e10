package ingestion

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"LiqSentinel/internal/barrier"
	"LiqSentinel/internal/event"
	"LiqSentinel/internal/observability"
	"LiqSentinel/internal/state"
)

// ErrSourceClosed is returned when the event channel closes underneath the
// loop. The upstream feed is the process's reason to exist, so main treats
// this as fatal.
var ErrSourceClosed = errors.New("ingestion: event source closed")

// Loop drains the event channel and applies deltas to the position store.
// It is the single writer of position state. The synced marker fires the
// startup barrier; everything else on the stream is counted and discarded.
type Loop struct {
	events  chan RawEvent
	store   *state.Store
	barrier *barrier.Barrier
	log     zerolog.Logger
	metrics *observability.Metrics

	synced bool
}

func NewLoop(
	events chan RawEvent,
	store *state.Store,
	b *barrier.Barrier,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Loop {
	return &Loop{
		events:  events,
		store:   store,
		barrier: b,
		log:     log,
		metrics: metrics,
	}
}

// Backlog reports how many events are queued but not yet applied. The
// sweep loop uses this to defer evaluation while state is catching up.
func (l *Loop) Backlog() int {
	return len(l.events)
}

// Run consumes events until the context is cancelled or the channel
// closes. A closed channel is fatal; a bad event never is.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-l.events:
			if !ok {
				return ErrSourceClosed
			}
			l.handle(ctx, raw)
			if l.metrics != nil {
				l.metrics.IngestBacklog.Set(float64(len(l.events)))
			}
		}
	}
}

func (l *Loop) handle(ctx context.Context, raw RawEvent) {
	evt, err := ParseStreamEvent(raw)
	if err != nil {
		// Poison message. Redelivery cannot fix it, so ack and move on.
		l.log.Error().Err(err).Str("subject", raw.Subject).Msg("dropping unparseable event")
		raw.AckFunc()
		return
	}

	if l.metrics != nil {
		l.metrics.IngestEvents.WithLabelValues(evt.Kind.String()).Inc()
	}

	switch evt.Kind {
	case event.KindPositionDelta:
		l.applyDelta(ctx, *evt.Delta)
	case event.KindSynced:
		l.markSynced(evt.Block)
	case event.KindOther:
		// Auxiliary notices (reorgs included) are consumed and discarded.
		l.log.Debug().Uint64("block", evt.Block).Msg("ignoring auxiliary notice")
	}

	raw.AckFunc()
}

func (l *Loop) applyDelta(ctx context.Context, delta event.PositionDelta) {
	start := time.Now()

	if err := l.store.UpsertFromDelta(ctx, delta); err != nil {
		// Creation failures are survivable: the position stays untracked
		// until a later delta retries it.
		l.log.Error().
			Err(err).
			Str("pool", delta.PoolAddress.String()).
			Str("user", delta.UserAddress.String()).
			Uint64("block", delta.BlockNumber).
			Msg("failed to apply position delta")
		return
	}

	if l.metrics != nil {
		l.metrics.IngestDeltaDuration.Observe(time.Since(start).Seconds())
	}
}

// markSynced opens the startup barrier on the first synced marker. The
// indexer emits the marker once per backfill; a redelivered duplicate is
// logged and ignored rather than tripping the barrier's double-fire panic.
func (l *Loop) markSynced(block uint64) {
	if l.synced {
		l.log.Warn().Uint64("block", block).Msg("duplicate synced marker ignored")
		return
	}
	l.synced = true

	l.log.Info().Uint64("block", block).Msg("backfill complete, opening startup barrier")
	l.barrier.Fire()
}
