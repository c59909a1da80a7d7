package domain

import "time"

// Position is an open, sized, live trade in one token. At most one open
// position exists per mint; the store enforces this.
type Position struct {
	Mint           string
	Symbol         string
	EntryPrice     float64 // must be > 0
	EntryTime      time.Time
	SizeSOL        float64 // remaining notional after partial exits
	InitialSizeSOL float64
	HighestPrice   float64 // monotonically non-decreasing once set
	LastPrice      float64 // previous tick's observation, flash-crash reference
	TriggeredRungs []float64 // take-profit thresholds already fired, ascending
	RealizedPnlSOL float64   // banked by partial exits
	Tags           TagSet
}

// PnlPercent returns unrealized P&L percent at the given price.
func (p *Position) PnlPercent(price float64) float64 {
	return (price - p.EntryPrice) / p.EntryPrice * 100
}

// RungTriggered reports whether the take-profit rung at the given
// threshold has already fired on this position.
func (p *Position) RungTriggered(thresholdPct float64) bool {
	for _, t := range p.TriggeredRungs {
		if t == thresholdPct {
			return true
		}
	}
	return false
}

// HoldDuration returns elapsed time since entry.
func (p *Position) HoldDuration(now time.Time) time.Duration {
	return now.Sub(p.EntryTime)
}
