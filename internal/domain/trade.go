package domain

import "time"

// Exit reason codes, in trigger priority order.
const (
	ExitReasonFlashCrash   = "FLASH_CRASH"
	ExitReasonStopLoss     = "STOP_LOSS"
	ExitReasonTakeProfit   = "TAKE_PROFIT"
	ExitReasonTrailingStop = "TRAILING_STOP"
	ExitReasonTimeExit     = "TIME_EXIT"
)

// ClosedTrade records one exit fill, partial or full. Append-only: records
// are never mutated after creation. A position closed through the
// take-profit ladder contributes one record per rung plus one for the
// final exit.
type ClosedTrade struct {
	FillID     string // executor-assigned fill identifier
	Mint       string
	Symbol     string
	EntryPrice float64
	EntryTime  time.Time

	ExitPrice  float64
	ExitReason string
	ExitTime   time.Time

	SizeSOL    float64 // notional sold in this fill
	PnlSOL     float64
	PnlPercent float64
	Partial    bool // true for take-profit rungs below 100%

	HoldDuration time.Duration
}

// Profitable reports whether this fill realized a gain.
func (t *ClosedTrade) Profitable() bool {
	return t.PnlSOL > 0
}
