package engine

import (
	"fmt"
	"time"

	"solana-sniper/internal/domain"
)

// Rung is one step of the take-profit ladder: at ThresholdPct unrealized
// gain, sell SellPct of the remaining position. Each rung fires at most
// once per position.
type Rung struct {
	ThresholdPct float64
	SellPct      float64
}

// ExitConfig holds the exit-trigger thresholds. Percentages are positive
// magnitudes; the trigger logic applies the sign.
type ExitConfig struct {
	FlashCrashPct    float64 // single-tick drop that exits immediately
	StopLossPct      float64 // cumulative loss that exits
	TakeProfitLadder []Rung  // ascending by threshold
	TrailingStopPct  float64 // drop from highest price, armed after first rung
	MaxHold          time.Duration
	MinPnlToHoldPct  float64 // below this at MaxHold, the trade is dead
}

// Validate rejects ladders that are empty of meaning or out of order.
func (c ExitConfig) Validate() error {
	prev := -1.0
	for i, r := range c.TakeProfitLadder {
		if r.ThresholdPct <= prev {
			return fmt.Errorf("take-profit ladder not ascending at rung %d", i)
		}
		if r.SellPct <= 0 || r.SellPct > 100 {
			return fmt.Errorf("take-profit rung %d sell percent %.1f out of (0,100]", i, r.SellPct)
		}
		prev = r.ThresholdPct
	}
	return nil
}

// Trigger is one fired exit decision. SellFraction is the share of the
// remaining position to sell, in (0, 1].
type Trigger struct {
	Reason       string
	SellFraction float64
	RungPct      float64 // threshold of the fired rung, for TAKE_PROFIT only
}

// Full reports whether the trigger closes the whole remainder.
func (t *Trigger) Full() bool {
	return t.SellFraction >= 1
}

// EvaluateExit runs the exit ladder for one position on one tick and
// returns the single trigger that fires, or nil. Priority is fixed:
// flash crash, stop loss, lowest untriggered take-profit rung, trailing
// stop (armed only after a rung has fired), then dead-trade timeout.
// price is this tick's observation, prevPrice the previous tick's (entry
// price on the first tick). The position's HighestPrice must already
// include this tick's observation.
func EvaluateExit(pos *domain.Position, price, prevPrice float64, now time.Time, cfg ExitConfig) *Trigger {
	pnl := pos.PnlPercent(price)

	// Flash crash reacts to instantaneous velocity, not cumulative loss:
	// it bounds a rug to roughly one tick's worth of slippage.
	tickChange := (price - prevPrice) / prevPrice * 100
	if tickChange <= -cfg.FlashCrashPct {
		return &Trigger{Reason: domain.ExitReasonFlashCrash, SellFraction: 1}
	}

	if pnl <= -cfg.StopLossPct {
		return &Trigger{Reason: domain.ExitReasonStopLoss, SellFraction: 1}
	}

	// Only the lowest untriggered rung whose threshold is met fires.
	for _, rung := range cfg.TakeProfitLadder {
		if pos.RungTriggered(rung.ThresholdPct) {
			continue
		}
		if pnl >= rung.ThresholdPct {
			return &Trigger{
				Reason:       domain.ExitReasonTakeProfit,
				SellFraction: rung.SellPct / 100,
				RungPct:      rung.ThresholdPct,
			}
		}
		break
	}

	if len(pos.TriggeredRungs) > 0 && pos.HighestPrice > 0 {
		fromHigh := (price - pos.HighestPrice) / pos.HighestPrice * 100
		if fromHigh <= -cfg.TrailingStopPct {
			return &Trigger{Reason: domain.ExitReasonTrailingStop, SellFraction: 1}
		}
	}

	if cfg.MaxHold > 0 && pos.HoldDuration(now) >= cfg.MaxHold && pnl < cfg.MinPnlToHoldPct {
		return &Trigger{Reason: domain.ExitReasonTimeExit, SellFraction: 1}
	}

	return nil
}
