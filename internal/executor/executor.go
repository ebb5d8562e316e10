// Package executor turns a liquidable position into an on-chain
// liquidation attempt: quote a swap route for the collateral, build the
// call, submit it, classify the outcome.
package executor

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"LiqSentinel/internal/event"
	"LiqSentinel/internal/observability"
	"LiqSentinel/internal/state"
)

// ErrNotUndercollateralized is surfaced by the submitter when the protocol
// rejects the call because the position is healthy again. Another
// liquidator won the race or the user repaid between sweep and submission;
// this is an expected outcome, not a fault.
var ErrNotUndercollateralized = errors.New("position not undercollateralized")

// Outcome classifies one liquidation attempt.
type Outcome string

const (
	OutcomeSubmitted Outcome = "submitted"
	OutcomeLostRace  Outcome = "lost_race"
	OutcomeFailed    Outcome = "failed"
)

// RouteRequest asks the swap router for a path selling seized collateral
// into the debt asset.
type RouteRequest struct {
	CollateralAddress event.Address
	DebtAddress       event.Address
	CollateralAmount  decimal.Decimal
	DebtAmount        decimal.Decimal
}

// Route is a quoted swap path, opaque calldata included.
type Route struct {
	SellAmount decimal.Decimal
	BuyAmount  decimal.Decimal
	Calldata   []byte
}

// SwapRouter quotes liquidation swap routes.
type SwapRouter interface {
	Quote(ctx context.Context, req RouteRequest) (Route, error)
}

// Call is one fully-built liquidation transaction.
type Call struct {
	AttemptID         uuid.UUID
	PoolAddress       event.Address
	UserAddress       event.Address
	CollateralAddress event.Address
	DebtAddress       event.Address
	Route             Route
}

// Submitter signs and submits a liquidation call, returning the
// transaction hash.
type Submitter interface {
	Submit(ctx context.Context, call Call) (string, error)
}

// Result is the record of one attempt, success or not.
type Result struct {
	AttemptID uuid.UUID
	Position  string
	Pool      string
	LTV       decimal.Decimal
	TxHash    string
	Outcome   Outcome
	Err       error
	Elapsed   time.Duration
	At        time.Time
}

// Executor drives liquidation attempts sequentially; the sweep loop calls
// it one position at a time.
type Executor struct {
	router    SwapRouter
	submitter Submitter
	log       zerolog.Logger
	metrics   *observability.Metrics
}

func New(router SwapRouter, submitter Submitter, log zerolog.Logger, metrics *observability.Metrics) *Executor {
	return &Executor{
		router:    router,
		submitter: submitter,
		log:       log,
		metrics:   metrics,
	}
}

// Liquidate quotes, builds and submits one liquidation. Failures are
// encoded in the result's outcome; the caller never aborts the sweep over
// a single attempt.
func (e *Executor) Liquidate(ctx context.Context, pos state.Position, eval state.Evaluation) Result {
	start := time.Now()
	result := Result{
		AttemptID: uuid.New(),
		Position:  pos.ID(),
		Pool:      pos.PoolName,
		LTV:       eval.LTV,
		At:        start,
	}

	if e.metrics != nil {
		e.metrics.LiquidationAttempts.Inc()
	}

	e.log.Info().
		Str("attempt", result.AttemptID.String()).
		Str("position", pos.ID()).
		Str("pool", pos.PoolName).
		Str("ltv", eval.LTV.String()).
		Str("lltv", pos.LLTV.String()).
		Msg("liquidating position")

	route, err := e.router.Quote(ctx, RouteRequest{
		CollateralAddress: pos.Collateral.Address,
		DebtAddress:       pos.Debt.Address,
		CollateralAmount:  pos.Collateral.Amount,
		DebtAmount:        pos.Debt.Amount,
	})
	if err != nil {
		return e.finish(result, "", OutcomeFailed, err, start)
	}

	txHash, err := e.submitter.Submit(ctx, Call{
		AttemptID:         result.AttemptID,
		PoolAddress:       pos.PoolAddress,
		UserAddress:       pos.UserAddress,
		CollateralAddress: pos.Collateral.Address,
		DebtAddress:       pos.Debt.Address,
		Route:             route,
	})
	if err != nil {
		if errors.Is(err, ErrNotUndercollateralized) {
			return e.finish(result, "", OutcomeLostRace, err, start)
		}
		return e.finish(result, "", OutcomeFailed, err, start)
	}

	return e.finish(result, txHash, OutcomeSubmitted, nil, start)
}

func (e *Executor) finish(result Result, txHash string, outcome Outcome, err error, start time.Time) Result {
	result.TxHash = txHash
	result.Outcome = outcome
	result.Err = err
	result.Elapsed = time.Since(start)

	if e.metrics != nil {
		e.metrics.LiquidationOutcomes.WithLabelValues(string(outcome)).Inc()
		e.metrics.LiquidationDuration.Observe(result.Elapsed.Seconds())
	}

	switch outcome {
	case OutcomeSubmitted:
		e.log.Info().
			Str("attempt", result.AttemptID.String()).
			Str("position", result.Position).
			Str("tx", txHash).
			Dur("elapsed", result.Elapsed).
			Msg("liquidation submitted")
	case OutcomeLostRace:
		// The position healed under us. Expected under competition.
		e.log.Warn().
			Str("attempt", result.AttemptID.String()).
			Str("position", result.Position).
			Dur("elapsed", result.Elapsed).
			Msg("position no longer undercollateralized, skipping")
	case OutcomeFailed:
		e.log.Error().
			Err(err).
			Str("attempt", result.AttemptID.String()).
			Str("position", result.Position).
			Dur("elapsed", result.Elapsed).
			Msg("liquidation attempt failed")
	}

	return result
}
