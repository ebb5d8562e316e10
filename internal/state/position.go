package state

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/event"
)

// nearLiquidableBand is the absolute LTV distance under the threshold at
// which a position is flagged near-liquidable. Log signal only; it never
// triggers execution.
var nearLiquidableBand = decimal.NewFromFloat(0.005)

// PairConfigSource fetches the protocol's liquidation threshold for one
// (pool, collateral, debt) pair. May fail on network or parse errors.
type PairConfigSource interface {
	MaxLTV(ctx context.Context, pool, collateral, debt event.Address) (decimal.Decimal, error)
}

// Prices is the read-only price query a position needs for its math.
// Satisfied by oracle.PriceCache.
type Prices interface {
	Price(ticker string) decimal.Decimal
}

// Position is one open lending position: a collateral leg, a debt leg,
// and the liquidation threshold fetched once at creation. The LLTV is
// treated as constant for the position's lifetime and never re-queried.
type Position struct {
	PoolName    string
	PoolAddress event.Address
	UserAddress event.Address
	Collateral  Asset
	Debt        Asset
	LLTV        decimal.Decimal
}

// Evaluation is the result of one liquidation-eligibility check.
type Evaluation struct {
	LTV            decimal.Decimal
	Liquidable     bool
	NearLiquidable bool
}

// ApplyDelta normalizes and applies one delta event to both legs.
func (p *Position) ApplyDelta(delta event.PositionDelta) {
	p.Collateral.ApplyDelta(NormalizeAmount(delta.CollateralDelta))
	p.Debt.ApplyDelta(NormalizeAmount(delta.DebtDelta))
}

// IsClosed reports whether the position's collateral balance has reached
// zero or below. Closed positions are evicted from the store immediately
// after the delta that closed them.
func (p *Position) IsClosed() bool {
	return p.Collateral.Amount.Sign() <= 0
}

// CollateralValueUSD returns the collateral leg's value in USD.
func (p *Position) CollateralValueUSD(prices Prices) decimal.Decimal {
	return p.Collateral.Amount.Mul(prices.Price(p.Collateral.Ticker))
}

// DebtValueUSD returns the debt leg's value in USD.
func (p *Position) DebtValueUSD(prices Prices) decimal.Decimal {
	return p.Debt.Amount.Mul(prices.Price(p.Debt.Ticker))
}

// ValueUSD returns the position's net value in USD.
func (p *Position) ValueUSD(prices Prices) decimal.Decimal {
	return p.CollateralValueUSD(prices).Sub(p.DebtValueUSD(prices))
}

// LTV returns debt value over collateral value. A zero collateral value
// yields a zero LTV rather than a division panic; Evaluate interprets
// that case.
func (p *Position) LTV(prices Prices) decimal.Decimal {
	collateralValue := p.CollateralValueUSD(prices)
	if collateralValue.Sign() <= 0 {
		return decimal.Zero
	}
	return p.DebtValueUSD(prices).Div(collateralValue)
}

// LiquidationPrice returns the collateral USD price at which the position
// becomes liquidable: debt*price(debt) / (collateral*lltv). The second
// return is false when the denominator is zero (no collateral or no
// threshold), which conceptually corresponds to an infinite price.
func (p *Position) LiquidationPrice(prices Prices) (decimal.Decimal, bool) {
	denominator := p.Collateral.Amount.Mul(p.LLTV)
	if denominator.Sign() <= 0 {
		return decimal.Zero, false
	}
	return p.DebtValueUSD(prices).Div(denominator), true
}

// Evaluate performs the liquidation-eligibility check. Pure: reads prices,
// mutates nothing.
//
// Rules:
//   - lltv == 0: unconfigured pair, never liquidable.
//   - ltv == 0 with nonzero debt: debt against worthless collateral,
//     liquidable by definition.
//   - otherwise liquidable iff ltv >= lltv; inside (lltv-0.005, lltv)
//     the position is flagged near-liquidable.
func (p *Position) Evaluate(prices Prices) Evaluation {
	if p.LLTV.IsZero() {
		return Evaluation{LTV: decimal.Zero}
	}

	ltv := p.LTV(prices)

	if ltv.IsZero() {
		return Evaluation{
			LTV:        ltv,
			Liquidable: !p.Debt.Amount.IsZero(),
		}
	}

	liquidable := ltv.GreaterThanOrEqual(p.LLTV)
	near := !liquidable && ltv.GreaterThan(p.LLTV.Sub(nearLiquidableBand))

	return Evaluation{
		LTV:            ltv,
		Liquidable:     liquidable,
		NearLiquidable: near,
	}
}

// ID returns the position's derived identifier. It is NOT globally unique
// across time: the hash of the address tuple can repeat once a position
// closes and the same (pool, collateral, debt, user) combination reopens.
// The store treats a reopened key as a brand-new entity.
func (p *Position) ID() string {
	return ComputeKey(p.PoolAddress, p.Collateral.Address, p.Debt.Address, p.UserAddress)
}

// ComputeKey derives the position key from the address tuple.
func ComputeKey(pool, collateral, debt, user event.Address) string {
	h := fnv.New64a()
	h.Write([]byte(pool))
	h.Write([]byte(collateral))
	h.Write([]byte(debt))
	h.Write([]byte(user))
	return strconv.FormatUint(h.Sum64(), 16)
}

func (p *Position) String() string {
	return fmt.Sprintf("position %s with %s %s of collateral and %s %s of debt",
		p.ID(),
		p.Collateral.Amount, p.Collateral.Ticker,
		p.Debt.Amount, p.Debt.Ticker,
	)
}
