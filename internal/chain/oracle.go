package chain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/assets"
)

// priceScale is the fixed-point exponent of oracle prices on the wire.
const priceScale = 18

// OracleClient reads asset USD prices from the protocol's on-chain
// oracle. Implements oracle.PriceFetcher.
type OracleClient struct {
	rpc *Client
}

func NewOracleClient(rpc *Client) *OracleClient {
	return &OracleClient{rpc: rpc}
}

type priceParams struct {
	Asset string `json:"asset"`
}

type priceResult struct {
	Price   string `json:"price"`
	IsValid bool   `json:"is_valid"`
}

// FetchUSD returns the asset's USD price. The oracle flags prices it
// cannot currently attest to; those are errors, the cached value stays.
func (o *OracleClient) FetchUSD(ctx context.Context, asset assets.Config) (decimal.Decimal, error) {
	var result priceResult
	err := o.rpc.Call(ctx, "lending_getAssetPrice", priceParams{
		Asset: asset.Address.String(),
	}, &result)
	if err != nil {
		return decimal.Zero, err
	}

	if !result.IsValid {
		return decimal.Zero, fmt.Errorf("oracle reports invalid price for %s", asset.Ticker)
	}

	raw, err := decimal.NewFromString(result.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q for %s: %w", result.Price, asset.Ticker, err)
	}
	return raw.Shift(-priceScale), nil
}
