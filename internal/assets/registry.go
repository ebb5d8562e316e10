// Package assets holds the registry of on-chain assets the monitor knows
// about. The registry is built once at startup from configuration and is
// read-only afterwards; it is passed by handle into every component that
// needs asset metadata instead of living in a package-level global.
package assets

import (
	"fmt"
	"strings"

	"LiqSentinel/internal/event"
)

// Config describes one on-chain asset.
type Config struct {
	Name     string
	Ticker   string
	Decimals uint32
	Address  event.Address
}

// Registry indexes asset configs by ticker and by address.
type Registry struct {
	byTicker  map[string]Config
	byAddress map[event.Address]Config
	all       []Config
}

// NewRegistry builds a registry from asset configs. Duplicate tickers or
// addresses are rejected: the registry is the identity authority and an
// ambiguous entry would silently misprice positions.
func NewRegistry(configs []Config) (*Registry, error) {
	r := &Registry{
		byTicker:  make(map[string]Config, len(configs)),
		byAddress: make(map[event.Address]Config, len(configs)),
		all:       make([]Config, 0, len(configs)),
	}

	for _, c := range configs {
		ticker := strings.ToUpper(strings.TrimSpace(c.Ticker))
		if ticker == "" {
			return nil, fmt.Errorf("asset %q has empty ticker", c.Name)
		}
		addr := event.NormalizeAddress(string(c.Address))

		if _, exists := r.byTicker[ticker]; exists {
			return nil, fmt.Errorf("duplicate asset ticker %s", ticker)
		}
		if _, exists := r.byAddress[addr]; exists {
			return nil, fmt.Errorf("duplicate asset address %s", addr)
		}

		c.Ticker = ticker
		c.Address = addr
		r.byTicker[ticker] = c
		r.byAddress[addr] = c
		r.all = append(r.all, c)
	}

	return r, nil
}

// ByTicker looks an asset up by its (case-insensitive) ticker.
func (r *Registry) ByTicker(ticker string) (Config, bool) {
	c, ok := r.byTicker[strings.ToUpper(ticker)]
	return c, ok
}

// ByAddress looks an asset up by its on-chain address.
func (r *Registry) ByAddress(addr event.Address) (Config, bool) {
	c, ok := r.byAddress[event.NormalizeAddress(string(addr))]
	return c, ok
}

// All returns every registered asset in configuration order.
func (r *Registry) All() []Config {
	out := make([]Config, len(r.all))
	copy(out, r.all)
	return out
}

// Len returns the number of registered assets.
func (r *Registry) Len() int {
	return len(r.all)
}
