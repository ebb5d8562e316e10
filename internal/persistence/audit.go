// Package persistence writes the liquidation audit trail to Postgres.
// The audit path is best-effort by design: monitoring must never stall on
// a slow or absent database.
package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"

	"LiqSentinel/internal/executor"
	"LiqSentinel/internal/observability"
)

// AuditWriter drains attempt results and batch-writes them to Postgres.
// Record never blocks: when the channel is full the result is dropped and
// counted, because a stuck database must not back-pressure the sweep.
type AuditWriter struct {
	db           *sql.DB
	input        chan executor.Result
	batchSize    int
	flushTimeout time.Duration
	log          zerolog.Logger
	metrics      *observability.Metrics
}

func NewAuditWriter(
	db *sql.DB,
	batchSize int,
	flushTimeout time.Duration,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *AuditWriter {
	return &AuditWriter{
		db:           db,
		input:        make(chan executor.Result, batchSize*4),
		batchSize:    batchSize,
		flushTimeout: flushTimeout,
		log:          log,
		metrics:      metrics,
	}
}

// Record queues one attempt result for persistence. Implements
// monitor.Auditor.
func (w *AuditWriter) Record(result executor.Result) {
	select {
	case w.input <- result:
	default:
		if w.metrics != nil {
			w.metrics.AuditDrops.Inc()
		}
		w.log.Warn().
			Str("attempt", result.AttemptID.String()).
			Msg("audit channel full, dropping record")
	}
}

// Run batches incoming results and flushes on batch-full or timeout.
// Blocks until ctx is cancelled; the remaining batch is flushed on the
// way out.
func (w *AuditWriter) Run(ctx context.Context) error {
	batch := make([]executor.Result, 0, w.batchSize)

	timer := time.NewTimer(w.flushTimeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				if err := w.flush(context.Background(), batch); err != nil {
					w.log.Error().Err(err).Msg("final audit flush failed")
				}
			}
			return ctx.Err()

		case result := <-w.input:
			batch = append(batch, result)
			if len(batch) >= w.batchSize {
				w.flushWithRetry(ctx, batch)
				batch = batch[:0]
				timer.Reset(w.flushTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				w.flushWithRetry(ctx, batch)
				batch = batch[:0]
			}
			timer.Reset(w.flushTimeout)
		}
	}
}

// flushWithRetry retries a failed flush with exponential backoff, bounded
// because audit rows are droppable where ledger rows would not be.
func (w *AuditWriter) flushWithRetry(ctx context.Context, batch []executor.Result) {
	const maxAttempts = 5
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err := w.flush(ctx, batch); err != nil {
			if w.metrics != nil {
				w.metrics.AuditErrors.WithLabelValues("flush").Inc()
			}
			w.log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Int("rows", len(batch)).
				Msg("audit flush failed")
			continue
		}
		return
	}

	if w.metrics != nil {
		w.metrics.AuditDrops.Add(float64(len(batch)))
	}
	w.log.Error().Int("rows", len(batch)).Msg("audit batch dropped after retries")
}

func (w *AuditWriter) flush(ctx context.Context, batch []executor.Result) error {
	start := time.Now()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO liquidation_attempts
			(attempt_id, position_key, pool, ltv, outcome, tx_hash, error, elapsed_ms, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (attempt_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range batch {
		var errText sql.NullString
		if r.Err != nil {
			errText = sql.NullString{String: r.Err.Error(), Valid: true}
		}
		var txHash sql.NullString
		if r.TxHash != "" {
			txHash = sql.NullString{String: r.TxHash, Valid: true}
		}

		_, err := stmt.ExecContext(ctx,
			r.AttemptID, r.Position, r.Pool, r.LTV.String(),
			string(r.Outcome), txHash, errText,
			r.Elapsed.Milliseconds(), r.At,
		)
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if w.metrics != nil {
		w.metrics.AuditBatchDur.Observe(time.Since(start).Seconds())
		w.metrics.AuditRowsWritten.Add(float64(len(batch)))
	}
	return nil
}
