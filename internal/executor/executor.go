// Package executor defines the trade execution collaborator. The core is
// mode-blind: simulated and live executors satisfy the same interface and
// the engine cannot tell which one it holds.
package executor

import (
	"context"
	"errors"
	"time"
)

// Side of a fill.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// ErrExecutionFailed is returned when a trade could not be confirmed. The
// caller must not mutate any state and should retry the intended action on
// its next cycle. Ambiguous outcomes (submitted, confirmation unknown)
// resolve to this error rather than to a speculative success.
var ErrExecutionFailed = errors.New("trade execution failed")

// Fill describes a confirmed execution.
type Fill struct {
	FillID     string
	Mint       string
	Side       string
	SizeSOL    float64
	Price      float64 // effective fill price after slippage
	ExecutedAt time.Time
}

// Executor executes swaps. Implementations must return either a confirmed
// fill or an error; there is no partial-confirmation state visible to
// callers.
type Executor interface {
	Buy(ctx context.Context, mint string, sizeSOL float64) (*Fill, error)
	Sell(ctx context.Context, mint string, sizeSOL float64) (*Fill, error)
}
