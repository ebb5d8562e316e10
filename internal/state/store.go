package state

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"LiqSentinel/internal/assets"
	"LiqSentinel/internal/event"
	"LiqSentinel/internal/observability"
)

// Key identifies a position within the store: the pool it lives in plus
// the derived hash of the address tuple. The hash is not unique across
// time (see Position.ID); upserts overwrite, never merge.
type Key struct {
	Pool event.Address
	Hash string
}

// KeyForDelta derives the store key for a delta event.
func KeyForDelta(delta event.PositionDelta) Key {
	return Key{
		Pool: delta.PoolAddress,
		Hash: ComputeKey(delta.PoolAddress, delta.CollateralAddress, delta.DebtAddress, delta.UserAddress),
	}
}

// Store is the authoritative table of open positions. Writes come from
// exactly one goroutine (the ingestion loop); the sweep loop reads via
// Snapshot. The mutex only guards snapshot consistency, not writer-writer
// races, which the single-writer discipline rules out.
type Store struct {
	mu        sync.RWMutex
	positions map[Key]*Position

	registry   *assets.Registry
	pools      *assets.PoolRegistry
	pairConfig PairConfigSource
	log        zerolog.Logger
	metrics    *observability.Metrics
}

func NewStore(
	registry *assets.Registry,
	pools *assets.PoolRegistry,
	pairConfig PairConfigSource,
	log zerolog.Logger,
	metrics *observability.Metrics,
) *Store {
	return &Store{
		positions:  make(map[Key]*Position),
		registry:   registry,
		pools:      pools,
		pairConfig: pairConfig,
		log:        log,
		metrics:    metrics,
	}
}

// UpsertFromDelta applies a delta to the existing position under its key,
// or constructs a new position (LLTV lookup included) and applies the
// delta to it so the very first observation is accounted for. Positions
// whose collateral reaches zero or below are evicted immediately.
//
// A failed LLTV lookup returns an error; the caller logs it and moves on.
// The position stays absent until a later delta retries creation.
func (s *Store) UpsertFromDelta(ctx context.Context, delta event.PositionDelta) error {
	key := KeyForDelta(delta)

	s.mu.Lock()
	if pos, ok := s.positions[key]; ok {
		pos.ApplyDelta(delta)
		s.removeIfClosed(key, pos)
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	// Creation needs a network round trip for the pair's LLTV; the lock
	// is not held across it. Single-writer discipline makes the
	// check-then-insert safe.
	pos, err := s.newPosition(ctx, delta)
	if err != nil {
		if s.metrics != nil {
			s.metrics.PositionCreateFailures.Inc()
		}
		return fmt.Errorf("create position %s: %w", key.Hash, err)
	}

	pos.ApplyDelta(delta)

	s.mu.Lock()
	s.positions[key] = pos
	s.removeIfClosed(key, pos)
	s.updateTrackedGauge()
	s.mu.Unlock()

	return nil
}

// newPosition constructs a fresh position for an unseen key. The LLTV is
// fetched from the pair configuration exactly once, here; a zero LLTV
// means the pair is not configured for liquidation and the creation is
// rejected.
func (s *Store) newPosition(ctx context.Context, delta event.PositionDelta) (*Position, error) {
	pool, ok := s.pools.ByAddress(delta.PoolAddress)
	if !ok {
		return nil, fmt.Errorf("unknown pool %s", delta.PoolAddress)
	}

	collateralCfg, ok := s.registry.ByAddress(delta.CollateralAddress)
	if !ok {
		return nil, fmt.Errorf("unknown collateral asset %s", delta.CollateralAddress)
	}

	debtCfg, ok := s.registry.ByAddress(delta.DebtAddress)
	if !ok {
		return nil, fmt.Errorf("unknown debt asset %s", delta.DebtAddress)
	}

	lltv, err := s.pairConfig.MaxLTV(ctx, pool.Address, collateralCfg.Address, debtCfg.Address)
	if err != nil {
		return nil, fmt.Errorf("pair config for %s %s-%s: %w", pool.Name, collateralCfg.Ticker, debtCfg.Ticker, err)
	}
	if lltv.IsZero() {
		return nil, fmt.Errorf("pair %s %s-%s has zero max LTV", pool.Name, collateralCfg.Ticker, debtCfg.Ticker)
	}

	return &Position{
		PoolName:    pool.Name,
		PoolAddress: pool.Address,
		UserAddress: delta.UserAddress,
		Collateral:  NewAsset(collateralCfg),
		Debt:        NewAsset(debtCfg),
		LLTV:        lltv,
	}, nil
}

// removeIfClosed evicts the entry when its collateral balance is zero or
// negative. Must be called with the write lock held.
func (s *Store) removeIfClosed(key Key, pos *Position) {
	if !pos.IsClosed() {
		return
	}

	delete(s.positions, key)
	s.log.Debug().
		Str("position", pos.ID()).
		Str("pool", pos.PoolName).
		Msg("position closed, evicted from store")

	if s.metrics != nil {
		s.metrics.PositionsEvicted.Inc()
	}
	s.updateTrackedGauge()
}

func (s *Store) updateTrackedGauge() {
	if s.metrics != nil {
		s.metrics.PositionsTracked.Set(float64(len(s.positions)))
	}
}

// Snapshot returns a point-in-time copy of every open position. Entries
// are value copies: the sweep evaluates either the fully pre- or fully
// post-update state of each position, never a torn one.
func (s *Store) Snapshot() []Position {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, *pos)
	}
	return out
}

// Len returns the number of open positions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.positions)
}

// Get returns a copy of the position under the given key, if present.
// Primarily for tests and diagnostics.
func (s *Store) Get(key Key) (Position, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[key]
	if !ok {
		return Position{}, false
	}
	return *pos, true
}
