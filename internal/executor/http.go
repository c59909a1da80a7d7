package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HTTPExecutor submits swaps to an external execution service that owns
// transaction building, signing, and broadcast. The service confirms the
// swap on-chain before responding, so a 200 is a definite fill and
// anything else (including a timeout) is a definite failure to retry.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor creates an HTTPExecutor against the given base URL.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type swapRequest struct {
	Mint    string  `json:"mint"`
	Side    string  `json:"side"`
	SizeSOL float64 `json:"sizeSol"`
}

type swapResponse struct {
	FillID     string  `json:"fillId"`
	Price      float64 `json:"price"`
	SizeSOL    float64 `json:"sizeSol"`
	ExecutedAt int64   `json:"executedAt"` // unix ms
	Error      string  `json:"error,omitempty"`
}

// Buy submits a buy swap.
func (e *HTTPExecutor) Buy(ctx context.Context, mint string, sizeSOL float64) (*Fill, error) {
	return e.swap(ctx, mint, SideBuy, sizeSOL)
}

// Sell submits a sell swap.
func (e *HTTPExecutor) Sell(ctx context.Context, mint string, sizeSOL float64) (*Fill, error) {
	return e.swap(ctx, mint, SideSell, sizeSOL)
}

func (e *HTTPExecutor) swap(ctx context.Context, mint, side string, sizeSOL float64) (*Fill, error) {
	body, err := json.Marshal(swapRequest{Mint: mint, Side: side, SizeSOL: sizeSOL})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", ErrExecutionFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrExecutionFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		// Covers timeouts and transport errors. The service confirms
		// before responding, so an unknown outcome is treated as failure
		// and the intended action retried next tick.
		return nil, fmt.Errorf("%w: %v", ErrExecutionFailed, err)
	}
	defer resp.Body.Close()

	var sr swapResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrExecutionFailed, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrExecutionFailed, resp.StatusCode, sr.Error)
	}
	if sr.Price <= 0 {
		return nil, fmt.Errorf("%w: fill without price", ErrExecutionFailed)
	}

	return &Fill{
		FillID:     sr.FillID,
		Mint:       mint,
		Side:       side,
		SizeSOL:    sr.SizeSOL,
		Price:      sr.Price,
		ExecutedAt: time.UnixMilli(sr.ExecutedAt),
	}, nil
}

var _ Executor = (*HTTPExecutor)(nil)
