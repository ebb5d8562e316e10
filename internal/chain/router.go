package chain

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"LiqSentinel/internal/executor"
)

// RouterClient quotes liquidation swaps against an off-chain aggregator
// API. Implements executor.SwapRouter.
type RouterClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewRouterClient(baseURL string, timeout time.Duration) *RouterClient {
	return &RouterClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type quoteResponse struct {
	SellAmount string `json:"sell_amount"`
	BuyAmount  string `json:"buy_amount"`
	Calldata   string `json:"calldata"` // hex, 0x prefixed
}

// Quote asks the aggregator for a route selling the seized collateral
// into the debt asset.
func (r *RouterClient) Quote(ctx context.Context, req executor.RouteRequest) (executor.Route, error) {
	q := url.Values{}
	q.Set("sell_token", req.CollateralAddress.String())
	q.Set("buy_token", req.DebtAddress.String())
	q.Set("sell_amount", req.CollateralAmount.String())
	q.Set("min_buy_amount", req.DebtAmount.String())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/quote?"+q.Encode(), nil)
	if err != nil {
		return executor.Route{}, fmt.Errorf("build quote request: %w", err)
	}

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return executor.Route{}, fmt.Errorf("quote: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return executor.Route{}, fmt.Errorf("quote: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var quote quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return executor.Route{}, fmt.Errorf("decode quote: %w", err)
	}

	sellAmount, err := decimal.NewFromString(quote.SellAmount)
	if err != nil {
		return executor.Route{}, fmt.Errorf("parse sell_amount %q: %w", quote.SellAmount, err)
	}
	buyAmount, err := decimal.NewFromString(quote.BuyAmount)
	if err != nil {
		return executor.Route{}, fmt.Errorf("parse buy_amount %q: %w", quote.BuyAmount, err)
	}
	calldata, err := hex.DecodeString(strings.TrimPrefix(quote.Calldata, "0x"))
	if err != nil {
		return executor.Route{}, fmt.Errorf("decode calldata: %w", err)
	}

	return executor.Route{
		SellAmount: sellAmount,
		BuyAmount:  buyAmount,
		Calldata:   calldata,
	}, nil
}
