package chain

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"LiqSentinel/internal/executor"
)

// notUndercollateralizedMarker is the revert string the protocol returns
// when a liquidation call targets a position that is healthy again.
const notUndercollateralizedMarker = "not-undercollateralized"

// SubmitterClient submits liquidation transactions through the RPC
// client. Implements executor.Submitter.
type SubmitterClient struct {
	rpc *Client
}

func NewSubmitterClient(rpc *Client) *SubmitterClient {
	return &SubmitterClient{rpc: rpc}
}

type submitParams struct {
	Pool       string `json:"pool"`
	User       string `json:"user"`
	Collateral string `json:"collateral"`
	Debt       string `json:"debt"`
	Calldata   string `json:"calldata"`
}

type submitResult struct {
	TxHash string `json:"tx_hash"`
}

// Submit sends the liquidation call. A protocol revert carrying the
// not-undercollateralized marker is mapped to the executor's sentinel so
// the caller can tell a lost race from a real failure.
func (s *SubmitterClient) Submit(ctx context.Context, call executor.Call) (string, error) {
	var result submitResult
	err := s.rpc.Call(ctx, "lending_submitLiquidation", submitParams{
		Pool:       call.PoolAddress.String(),
		User:       call.UserAddress.String(),
		Collateral: call.CollateralAddress.String(),
		Debt:       call.DebtAddress.String(),
		Calldata:   "0x" + hex.EncodeToString(call.Route.Calldata),
	}, &result)
	if err != nil {
		var rpcErr *RPCError
		if errors.As(err, &rpcErr) && strings.Contains(rpcErr.Message, notUndercollateralizedMarker) {
			return "", fmt.Errorf("%w: %s", executor.ErrNotUndercollateralized, rpcErr.Message)
		}
		return "", fmt.Errorf("submit liquidation: %w", err)
	}
	return result.TxHash, nil
}
