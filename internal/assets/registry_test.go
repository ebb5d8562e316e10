package assets_test

import (
	"testing"

	"LiqSentinel/internal/assets"
)

func TestRegistry_LookupByTickerAndAddress(t *testing.T) {
	r, err := assets.NewRegistry([]assets.Config{
		{Name: "Wrapped BTC", Ticker: "wbtc", Decimals: 8, Address: "0x0A"},
	})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}

	// Tickers are case-insensitive and stored uppercase.
	cfg, ok := r.ByTicker("WbTc")
	if !ok {
		t.Fatal("ticker lookup failed")
	}
	if cfg.Ticker != "WBTC" {
		t.Errorf("ticker: got %s, want WBTC", cfg.Ticker)
	}

	// Addresses normalize to lowercase.
	if _, ok := r.ByAddress("0X0A"); !ok {
		t.Error("address lookup should be case-insensitive")
	}
}

func TestRegistry_DuplicateTickerRejected(t *testing.T) {
	_, err := assets.NewRegistry([]assets.Config{
		{Name: "A", Ticker: "WBTC", Address: "0x0a"},
		{Name: "B", Ticker: "wbtc", Address: "0x0b"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate ticker")
	}
}

func TestRegistry_DuplicateAddressRejected(t *testing.T) {
	_, err := assets.NewRegistry([]assets.Config{
		{Name: "A", Ticker: "AAA", Address: "0x0a"},
		{Name: "B", Ticker: "BBB", Address: "0x0A"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate address")
	}
}

func TestRegistry_EmptyTickerRejected(t *testing.T) {
	_, err := assets.NewRegistry([]assets.Config{
		{Name: "A", Ticker: "  ", Address: "0x0a"},
	})
	if err == nil {
		t.Fatal("expected error for empty ticker")
	}
}

func TestPoolRegistry_Lookup(t *testing.T) {
	r, err := assets.NewPoolRegistry([]assets.PoolConfig{
		{Name: "Prime", Address: "0x01"},
	})
	if err != nil {
		t.Fatalf("new pool registry: %v", err)
	}

	if _, ok := r.ByName("Prime"); !ok {
		t.Error("name lookup failed")
	}
	if _, ok := r.ByAddress("0X01"); !ok {
		t.Error("address lookup should be case-insensitive")
	}
	if _, ok := r.ByAddress("0x99"); ok {
		t.Error("unknown address must not resolve")
	}
}

func TestPoolRegistry_DuplicateNameRejected(t *testing.T) {
	_, err := assets.NewPoolRegistry([]assets.PoolConfig{
		{Name: "Prime", Address: "0x01"},
		{Name: "Prime", Address: "0x02"},
	})
	if err == nil {
		t.Fatal("expected error for duplicate pool name")
	}
}
