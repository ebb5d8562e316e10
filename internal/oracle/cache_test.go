package oracle_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/assets"
	"LiqSentinel/internal/oracle"
)

func testRegistry(t *testing.T) *assets.Registry {
	t.Helper()
	r, err := assets.NewRegistry([]assets.Config{
		{Name: "Wrapped BTC", Ticker: "WBTC", Decimals: 8, Address: "0x0a"},
		{Name: "USD Coin", Ticker: "USDC", Decimals: 6, Address: "0x0b"},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

func TestPriceCache_StartsAtZero(t *testing.T) {
	cache := oracle.NewPriceCache(testRegistry(t))

	if !cache.Price("WBTC").IsZero() {
		t.Error("unseen asset should price at zero")
	}
	if cache.Ready() {
		t.Error("cache must not be ready before the first refresh")
	}
}

func TestPriceCache_USDIsAlwaysOne(t *testing.T) {
	cache := oracle.NewPriceCache(testRegistry(t))

	if !cache.Price("USD").Equal(decimal.NewFromInt(1)) {
		t.Errorf("USD price: got %s, want 1", cache.Price("USD"))
	}
}

func TestPriceCache_PublishAndReady(t *testing.T) {
	cache := oracle.NewPriceCache(testRegistry(t))

	cache.Publish(map[string]decimal.Decimal{
		"WBTC": decimal.NewFromInt(65000),
	})
	if cache.Ready() {
		t.Error("cache must not be ready while one asset is still unpriced")
	}

	cache.Publish(map[string]decimal.Decimal{
		"USDC": decimal.NewFromInt(1),
	})
	if !cache.Ready() {
		t.Error("cache should be ready once every asset has a price")
	}

	if !cache.Price("WBTC").Equal(decimal.NewFromInt(65000)) {
		t.Errorf("WBTC price: got %s, want 65000", cache.Price("WBTC"))
	}
}

func TestPriceCache_WaitReadyObservesCancellation(t *testing.T) {
	cache := oracle.NewPriceCache(testRegistry(t))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := cache.WaitReady(ctx); err == nil {
		t.Fatal("WaitReady should fail when the cache never fills")
	}
}

func TestPriceCache_WaitReadyImmediateWhenFull(t *testing.T) {
	cache := oracle.NewPriceCache(testRegistry(t))
	cache.Publish(map[string]decimal.Decimal{
		"WBTC": decimal.NewFromInt(65000),
		"USDC": decimal.NewFromInt(1),
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := cache.WaitReady(ctx); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}
}
