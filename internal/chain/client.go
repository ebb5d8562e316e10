// Package chain talks to the network: a JSON-RPC client with ordered
// endpoint fallback, plus the concrete implementations of the pair
// config, price, routing and submission interfaces the monitor consumes.
package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"LiqSentinel/internal/observability"
)

// RPCError is a JSON-RPC error object returned by the node itself. It is
// terminal: the node understood the request and rejected it, so trying
// the next endpoint would just get the same answer.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      uint64      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// Client is a JSON-RPC client over an ordered list of endpoints. Every
// call starts from the first endpoint and falls through on transport
// failure; an endpoint that answers, even with an RPC error, ends the
// attempt.
type Client struct {
	endpoints  []string
	httpClient *http.Client
	nextID     atomic.Uint64
	log        zerolog.Logger
	metrics    *observability.Metrics
}

func NewClient(endpoints []string, timeout time.Duration, log zerolog.Logger, metrics *observability.Metrics) (*Client, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("chain: no RPC endpoints configured")
	}
	return &Client{
		endpoints:  endpoints,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
		metrics:    metrics,
	}, nil
}

// Call performs one JSON-RPC call and decodes the result into out.
func (c *Client) Call(ctx context.Context, method string, params, out interface{}) error {
	if c.metrics != nil {
		c.metrics.ChainRequests.WithLabelValues(method).Inc()
	}

	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	var lastErr error
	for _, endpoint := range c.endpoints {
		result, err := c.post(ctx, endpoint, body)
		if err != nil {
			var rpcErr *RPCError
			if errors.As(err, &rpcErr) {
				return fmt.Errorf("%s: %w", method, err)
			}

			lastErr = err
			if c.metrics != nil {
				c.metrics.ChainEndpointErrors.WithLabelValues(endpoint).Inc()
			}
			c.log.Warn().
				Err(err).
				Str("endpoint", endpoint).
				Str("method", method).
				Msg("endpoint failed, trying next")
			continue
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(result, out); err != nil {
			return fmt.Errorf("decode %s result: %w", method, err)
		}
		return nil
	}

	return fmt.Errorf("%s: all %d endpoints failed: %w", method, len(c.endpoints), lastErr)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, rpcResp.Error
	}
	return rpcResp.Result, nil
}
