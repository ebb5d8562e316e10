package chain

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/event"
)

// maxLTVScale is the fixed-point exponent of protocol config values on
// the wire.
const maxLTVScale = 18

// PairConfigClient reads a pair's liquidation threshold from the lending
// protocol. Implements state.PairConfigSource.
type PairConfigClient struct {
	rpc *Client
}

func NewPairConfigClient(rpc *Client) *PairConfigClient {
	return &PairConfigClient{rpc: rpc}
}

type pairConfigParams struct {
	Pool       string `json:"pool"`
	Collateral string `json:"collateral"`
	Debt       string `json:"debt"`
}

type pairConfigResult struct {
	MaxLTV string `json:"max_ltv"`
}

// MaxLTV fetches the pair's liquidation threshold as a ratio. The wire
// value is an integer scaled by 10^18.
func (p *PairConfigClient) MaxLTV(ctx context.Context, pool, collateral, debt event.Address) (decimal.Decimal, error) {
	var result pairConfigResult
	err := p.rpc.Call(ctx, "lending_getPairConfig", pairConfigParams{
		Pool:       pool.String(),
		Collateral: collateral.String(),
		Debt:       debt.String(),
	}, &result)
	if err != nil {
		return decimal.Zero, err
	}

	raw, err := decimal.NewFromString(result.MaxLTV)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse max_ltv %q: %w", result.MaxLTV, err)
	}
	return raw.Shift(-maxLTVScale), nil
}
