// Package barrier provides the one-shot startup rendezvous between the
// ingestion loop (producer) and the sweep loop (consumer). The barrier is
// Pending until the ingestion loop has replayed history to the chain tip,
// then Open forever.
package barrier

import (
	"context"
	"sync"
	"sync/atomic"
)

// Barrier is a single-fire synchronization point. The zero value is not
// usable; construct with New.
type Barrier struct {
	open   atomic.Bool
	fireMu sync.Mutex
	fired  bool
	ch     chan struct{}
}

func New() *Barrier {
	return &Barrier{ch: make(chan struct{})}
}

// Fire transitions the barrier from Pending to Open. Calling Fire twice is
// a programming error, not a runtime condition, and panics.
func (b *Barrier) Fire() {
	b.fireMu.Lock()
	defer b.fireMu.Unlock()

	if b.fired {
		panic("barrier: Fire called twice")
	}
	b.fired = true
	b.open.Store(true)
	close(b.ch)
}

// IsOpen is a non-blocking poll of the barrier state.
func (b *Barrier) IsOpen() bool {
	return b.open.Load()
}

// Wait blocks until the barrier opens or ctx is cancelled.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
