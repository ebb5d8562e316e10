package ingestion_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"LiqSentinel/internal/assets"
	"LiqSentinel/internal/barrier"
	"LiqSentinel/internal/event"
	"LiqSentinel/internal/ingestion"
	"LiqSentinel/internal/state"
)

type fixedPairConfig struct {
	lltv decimal.Decimal
}

func (f fixedPairConfig) MaxLTV(_ context.Context, _, _, _ event.Address) (decimal.Decimal, error) {
	return f.lltv, nil
}

func newLoopFixture(t *testing.T) (*ingestion.Loop, chan ingestion.RawEvent, *state.Store, *barrier.Barrier) {
	t.Helper()

	registry, err := assets.NewRegistry([]assets.Config{
		{Name: "Wrapped BTC", Ticker: "WBTC", Decimals: 8, Address: "0x0a"},
		{Name: "USD Coin", Ticker: "USDC", Decimals: 6, Address: "0x0b"},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	pools, err := assets.NewPoolRegistry([]assets.PoolConfig{
		{Name: "Prime", Address: "0x01"},
	})
	if err != nil {
		t.Fatalf("pools: %v", err)
	}

	store := state.NewStore(registry, pools, fixedPairConfig{lltv: decimal.RequireFromString("0.6")}, zerolog.Nop(), nil)
	b := barrier.New()
	events := make(chan ingestion.RawEvent, 64)
	loop := ingestion.NewLoop(events, store, b, zerolog.Nop(), nil)
	return loop, events, store, b
}

func deltaRaw(t *testing.T, collateral, debt string) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"pool_address":       "0x01",
		"collateral_address": "0x0a",
		"debt_address":       "0x0b",
		"user_address":       "0xabc",
		"collateral_delta":   collateral,
		"debt_delta":         debt,
		"block_number":       uint64(100),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject: "liq.deltas.prime",
		Data:    data,
		AckFunc: func() {},
		NakFunc: func() {},
	}
}

func syncedRaw() ingestion.RawEvent {
	return ingestion.RawEvent{
		Subject: "liq.sync",
		Data:    []byte(`{"block_number": 200}`),
		AckFunc: func() {},
		NakFunc: func() {},
	}
}

// runToClose queues the given events, closes the channel and runs the loop
// until it reports the closed source.
func runToClose(t *testing.T, loop *ingestion.Loop, events chan ingestion.RawEvent, raws ...ingestion.RawEvent) {
	t.Helper()
	for _, raw := range raws {
		events <- raw
	}
	close(events)

	err := loop.Run(context.Background())
	if !errors.Is(err, ingestion.ErrSourceClosed) {
		t.Fatalf("Run: got %v, want ErrSourceClosed", err)
	}
}

func TestLoop_AppliesDeltas(t *testing.T) {
	loop, events, store, _ := newLoopFixture(t)

	runToClose(t, loop, events,
		deltaRaw(t, "10000000000000000000", "6000000000000000000"),
		deltaRaw(t, "5000000000000000000", "0"),
	)

	if store.Len() != 1 {
		t.Fatalf("store size: got %d, want 1", store.Len())
	}
	snap := store.Snapshot()
	if !snap[0].Collateral.Amount.Equal(decimal.NewFromInt(15)) {
		t.Errorf("collateral: got %s, want 15", snap[0].Collateral.Amount)
	}
}

func TestLoop_SyncedOpensBarrier(t *testing.T) {
	loop, events, _, b := newLoopFixture(t)

	if b.IsOpen() {
		t.Fatal("barrier must start closed")
	}

	runToClose(t, loop, events, syncedRaw())

	if !b.IsOpen() {
		t.Error("barrier should open on the synced marker")
	}
}

func TestLoop_DuplicateSyncedIgnored(t *testing.T) {
	loop, events, _, b := newLoopFixture(t)

	// A redelivered marker must not panic the barrier.
	runToClose(t, loop, events, syncedRaw(), syncedRaw())

	if !b.IsOpen() {
		t.Error("barrier should stay open")
	}
}

func TestLoop_UnparseableEventSkipped(t *testing.T) {
	loop, events, store, _ := newLoopFixture(t)

	bad := ingestion.RawEvent{
		Subject: "liq.deltas.prime",
		Data:    []byte(`{broken`),
		AckFunc: func() {},
		NakFunc: func() {},
	}

	runToClose(t, loop, events,
		bad,
		deltaRaw(t, "10000000000000000000", "0"),
	)

	// The bad message is dropped; the good one still lands.
	if store.Len() != 1 {
		t.Errorf("store size: got %d, want 1", store.Len())
	}
}

func TestLoop_UnknownPoolDeltaDoesNotStopLoop(t *testing.T) {
	loop, events, store, _ := newLoopFixture(t)

	unknown := deltaRaw(t, "1000000000000000000", "0")
	var payload map[string]interface{}
	if err := json.Unmarshal(unknown.Data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	payload["pool_address"] = "0x99"
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	unknown.Data = data

	runToClose(t, loop, events,
		unknown,
		deltaRaw(t, "10000000000000000000", "0"),
	)

	if store.Len() != 1 {
		t.Errorf("store size: got %d, want 1", store.Len())
	}
}

func TestLoop_BacklogReportsQueuedEvents(t *testing.T) {
	loop, events, _, _ := newLoopFixture(t)

	if loop.Backlog() != 0 {
		t.Fatalf("backlog: got %d, want 0", loop.Backlog())
	}

	events <- syncedRaw()
	events <- syncedRaw()

	if loop.Backlog() != 2 {
		t.Errorf("backlog: got %d, want 2", loop.Backlog())
	}
}

func TestLoop_ContextCancelStops(t *testing.T) {
	loop, _, _, _ := newLoopFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := loop.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run: got %v, want context.Canceled", err)
	}
}
