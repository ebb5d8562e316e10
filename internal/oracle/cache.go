// Package oracle maintains the USD price cache for all monitored assets
// and the refresh loop that keeps it current.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/assets"
)

// usdTicker has an implicit, constant price of one dollar.
const usdTicker = "USD"

// PriceCache maps asset tickers to their latest observed USD price. Every
// tracked asset starts at zero until the first successful refresh. The
// cache is an explicitly constructed handle shared by the refresher
// (writer) and the position math (readers).
type PriceCache struct {
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
}

// NewPriceCache seeds the cache with a zero price for every registered
// asset. WaitReady blocks until all of them have been overwritten with a
// nonzero value at least once.
func NewPriceCache(registry *assets.Registry) *PriceCache {
	prices := make(map[string]decimal.Decimal, registry.Len())
	for _, a := range registry.All() {
		prices[a.Ticker] = decimal.Zero
	}
	return &PriceCache{prices: prices}
}

// Price returns the latest USD price of the given ticker. "USD" is a
// reserved ticker with implicit price 1. Unknown tickers report zero,
// which downstream math treats as worthless collateral.
func (c *PriceCache) Price(ticker string) decimal.Decimal {
	if ticker == usdTicker {
		return decimal.NewFromInt(1)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[ticker]
}

// Publish overwrites the cached prices for an entire refresh cycle at
// once, so readers never observe a half-updated cycle.
func (c *PriceCache) Publish(updates map[string]decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for ticker, price := range updates {
		c.prices[ticker] = price
	}
}

// Ready reports whether every tracked asset has a nonzero price.
func (c *PriceCache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.prices {
		if p.IsZero() {
			return false
		}
	}
	return true
}

// WaitReady blocks until every tracked asset has received at least one
// nonzero price, or ctx is cancelled.
func (c *PriceCache) WaitReady(ctx context.Context) error {
	const checkInterval = 2 * time.Second

	if c.Ready() {
		return nil
	}

	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if c.Ready() {
				return nil
			}
		}
	}
}
