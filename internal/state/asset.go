// Package state holds the authoritative in-memory view of open lending
// positions and the liquidation math evaluated against them.
package state

import (
	"github.com/shopspring/decimal"

	"LiqSentinel/internal/assets"
	"LiqSentinel/internal/event"
)

// amountScale is the fixed-point exponent of raw on-chain amounts. Every
// delta arrives as an integer scaled by 10^18 regardless of the asset's
// own display decimals; balances are kept at this common internal scale so
// deltas from any asset combine without per-asset conversion.
const amountScale = 18

// Asset is one leg of a position: asset identity plus the running balance
// accumulated from applied deltas. The balance is decimal, never floating
// point, so long delta sequences cannot drift.
type Asset struct {
	Name     string
	Ticker   string
	Address  event.Address
	Decimals uint32
	Amount   decimal.Decimal
}

// NewAsset builds a zero-balance asset leg from registry metadata.
func NewAsset(cfg assets.Config) Asset {
	return Asset{
		Name:     cfg.Name,
		Ticker:   cfg.Ticker,
		Address:  cfg.Address,
		Decimals: cfg.Decimals,
		Amount:   decimal.Zero,
	}
}

// ApplyDelta adds a signed, already-normalized amount to the running
// balance. Balances are deliberately not clamped at zero: a zero-or-below
// collateral balance is how a closed position is recognized.
func (a *Asset) ApplyDelta(delta decimal.Decimal) {
	a.Amount = a.Amount.Add(delta)
}

// NormalizeAmount converts a raw on-chain integer amount to the internal
// scale.
func NormalizeAmount(raw decimal.Decimal) decimal.Decimal {
	return raw.Shift(-amountScale)
}
