package state_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/event"
	"LiqSentinel/internal/state"
)

// staticPrices satisfies state.Prices with a fixed table.
type staticPrices map[string]decimal.Decimal

func (p staticPrices) Price(ticker string) decimal.Decimal {
	if ticker == "USD" {
		return decimal.NewFromInt(1)
	}
	return p[ticker]
}

func makePosition(collateral, debt, lltv string) *state.Position {
	return &state.Position{
		PoolName:    "Prime",
		PoolAddress: "0x01",
		UserAddress: "0xabc",
		Collateral: state.Asset{
			Name:    "Wrapped BTC",
			Ticker:  "WBTC",
			Address: "0x0a",
			Amount:  decimal.RequireFromString(collateral),
		},
		Debt: state.Asset{
			Name:    "USD Coin",
			Ticker:  "USDC",
			Address: "0x0b",
			Amount:  decimal.RequireFromString(debt),
		},
		LLTV: decimal.RequireFromString(lltv),
	}
}

func onePrices() staticPrices {
	return staticPrices{
		"WBTC": decimal.NewFromInt(1),
		"USDC": decimal.NewFromInt(1),
	}
}

// rawAmount builds an on-chain integer amount: units * 10^18.
func rawAmount(units int64) decimal.Decimal {
	return decimal.New(units, 18)
}

// ============================================================================
// Test: delta application
// ============================================================================

func TestPosition_DeltaBalancesAreSumOfDeltas(t *testing.T) {
	pos := makePosition("0", "0", "0.6")

	deltas := []int64{5, 3, -2, 7, -1}
	var collateralSum, debtSum int64

	for _, d := range deltas {
		pos.ApplyDelta(event.PositionDelta{
			CollateralDelta: rawAmount(d),
			DebtDelta:       rawAmount(d * 2),
		})
		collateralSum += d
		debtSum += d * 2
	}

	if !pos.Collateral.Amount.Equal(decimal.NewFromInt(collateralSum)) {
		t.Errorf("collateral: got %s, want %d", pos.Collateral.Amount, collateralSum)
	}
	if !pos.Debt.Amount.Equal(decimal.NewFromInt(debtSum)) {
		t.Errorf("debt: got %s, want %d", pos.Debt.Amount, debtSum)
	}
}

func TestPosition_InverseDeltaRoundTrip(t *testing.T) {
	pos := makePosition("10", "6", "0.6")
	beforeCollateral := pos.Collateral.Amount
	beforeDebt := pos.Debt.Amount

	delta := event.PositionDelta{
		CollateralDelta: decimal.RequireFromString("123456789123456789"),
		DebtDelta:       decimal.RequireFromString("987654321987654321"),
	}
	inverse := event.PositionDelta{
		CollateralDelta: delta.CollateralDelta.Neg(),
		DebtDelta:       delta.DebtDelta.Neg(),
	}

	pos.ApplyDelta(delta)
	pos.ApplyDelta(inverse)

	if !pos.Collateral.Amount.Equal(beforeCollateral) {
		t.Errorf("collateral drifted: got %s, want %s", pos.Collateral.Amount, beforeCollateral)
	}
	if !pos.Debt.Amount.Equal(beforeDebt) {
		t.Errorf("debt drifted: got %s, want %s", pos.Debt.Amount, beforeDebt)
	}
}

// ============================================================================
// Test: closed detection
// ============================================================================

func TestPosition_IsClosed(t *testing.T) {
	cases := []struct {
		collateral string
		want       bool
	}{
		{"10", false},
		{"0.000000000000000001", false},
		{"0", true},
		{"-1", true},
	}

	for _, tc := range cases {
		pos := makePosition(tc.collateral, "1", "0.6")
		if got := pos.IsClosed(); got != tc.want {
			t.Errorf("IsClosed with collateral %s: got %v, want %v", tc.collateral, got, tc.want)
		}
	}
}

// ============================================================================
// Test: liquidation math
// ============================================================================

func TestPosition_LTV(t *testing.T) {
	pos := makePosition("10", "6", "0.6")
	ltv := pos.LTV(onePrices())

	if !ltv.Equal(decimal.RequireFromString("0.6")) {
		t.Errorf("LTV: got %s, want 0.6", ltv)
	}
}

func TestPosition_LTV_ZeroCollateralNoPanic(t *testing.T) {
	pos := makePosition("0", "6", "0.6")
	ltv := pos.LTV(onePrices())

	if !ltv.IsZero() {
		t.Errorf("LTV with zero collateral: got %s, want 0", ltv)
	}
}

func TestPosition_LiquidationPrice(t *testing.T) {
	pos := makePosition("10", "6", "0.6")

	price, ok := pos.LiquidationPrice(onePrices())
	if !ok {
		t.Fatal("liquidation price should be defined")
	}
	if !price.Equal(decimal.NewFromInt(1)) {
		t.Errorf("liquidation price: got %s, want 1", price)
	}
}

func TestPosition_LiquidationPrice_ZeroCollateralUndefined(t *testing.T) {
	pos := makePosition("0", "6", "0.6")

	if _, ok := pos.LiquidationPrice(onePrices()); ok {
		t.Error("liquidation price with zero collateral should be undefined")
	}
}

func TestPosition_Evaluate_ZeroLLTVNeverLiquidable(t *testing.T) {
	pos := makePosition("10", "1000", "0")

	eval := pos.Evaluate(onePrices())
	if eval.Liquidable {
		t.Error("zero LLTV pair must never be liquidable")
	}
	if eval.NearLiquidable {
		t.Error("zero LLTV pair must not be near-liquidable")
	}
}

func TestPosition_Evaluate_BoundaryIsLiquidable(t *testing.T) {
	// collateral=10, debt=6, lltv=0.6, both prices $1 → ltv exactly 0.6.
	pos := makePosition("10", "6", "0.6")

	eval := pos.Evaluate(onePrices())
	if !eval.Liquidable {
		t.Errorf("ltv %s == lltv 0.6 must be liquidable", eval.LTV)
	}
}

func TestPosition_Evaluate_BelowThresholdNotLiquidable(t *testing.T) {
	pos := makePosition("10", "5.99", "0.6")

	eval := pos.Evaluate(onePrices())
	if eval.Liquidable {
		t.Errorf("ltv %s < lltv 0.6 must not be liquidable", eval.LTV)
	}
}

func TestPosition_Evaluate_NearLiquidableBand(t *testing.T) {
	// ltv 0.5997 sits inside (0.595, 0.6): flagged, not liquidable.
	pos := makePosition("10", "5.997", "0.6")

	eval := pos.Evaluate(onePrices())
	if eval.Liquidable {
		t.Error("near-liquidable position must not be liquidable")
	}
	if !eval.NearLiquidable {
		t.Errorf("ltv %s should be flagged near-liquidable", eval.LTV)
	}
}

func TestPosition_Evaluate_FarBelowBandNotFlagged(t *testing.T) {
	pos := makePosition("10", "3", "0.6")

	eval := pos.Evaluate(onePrices())
	if eval.Liquidable || eval.NearLiquidable {
		t.Errorf("ltv %s should be neither liquidable nor near-liquidable", eval.LTV)
	}
}

func TestPosition_Evaluate_ZeroCollateralNonzeroDebt(t *testing.T) {
	pos := makePosition("0", "6", "0.6")

	eval := pos.Evaluate(onePrices())
	if !eval.Liquidable {
		t.Error("nonzero debt against zero collateral must be liquidable")
	}
}

func TestPosition_Evaluate_WorthlessCollateralNonzeroDebt(t *testing.T) {
	pos := makePosition("10", "6", "0.6")
	prices := staticPrices{
		"WBTC": decimal.Zero, // price never populated
		"USDC": decimal.NewFromInt(1),
	}

	eval := pos.Evaluate(prices)
	if !eval.Liquidable {
		t.Error("debt against zero-valued collateral must be liquidable")
	}
}

func TestPosition_Evaluate_ZeroCollateralZeroDebt(t *testing.T) {
	pos := makePosition("0", "0", "0.6")

	eval := pos.Evaluate(onePrices())
	if eval.Liquidable {
		t.Error("empty position must not be liquidable")
	}
}

// ============================================================================
// Test: identity
// ============================================================================

func TestComputeKey_Deterministic(t *testing.T) {
	a := state.ComputeKey("0x1", "0xa", "0xb", "0xabc")
	b := state.ComputeKey("0x1", "0xa", "0xb", "0xabc")

	if a != b {
		t.Errorf("same tuple produced different keys: %s vs %s", a, b)
	}
}

func TestComputeKey_DiffersByUser(t *testing.T) {
	a := state.ComputeKey("0x1", "0xa", "0xb", "0xabc")
	b := state.ComputeKey("0x1", "0xa", "0xb", "0xdef")

	if a == b {
		t.Error("different users must not share a position key")
	}
}
