// Package filter implements the ordered entry predicate pipeline. A
// candidate must pass every predicate to be eligible for entry; the
// breaker and slot gates are the caller's responsibility.
package filter

import (
	"context"
	"fmt"
	"time"

	"solana-sniper/internal/domain"
)

// Predicate names, in evaluation order. Reported verbatim in FAIL verdicts.
const (
	PredNotOnCooldown = "notOnCooldown"
	PredHasSignals    = "hasSignals"
	PredGoodRatio     = "goodRatio"
	PredIsPumping     = "isPumping"
	PredNotTopped     = "notTopped"
	PredHasLiquidity  = "hasLiquidity"
	PredNotTooOld     = "notTooOld"
	PredNotDumping    = "notDumping"
)

// Config holds the entry thresholds.
type Config struct {
	MinSignals      int     // minimum effective signal count
	StrongTrendPct  float64 // 1h change above this adds one synthetic signal
	StrongPumpPct   float64 // 5m change above this adds one synthetic signal
	MinBuySellRatio float64
	MinPumpPct      float64 // 5m change floor for isPumping
	MaxPumpPct      float64 // 5m change ceiling for notTopped
	MinLiquidityUSD float64 // default liquidity floor
	// LiquidityFloorByTag overrides the floor per venue tag; the launchpad
	// venue runs a lower floor than established DEXes.
	LiquidityFloorByTag map[domain.Tag]float64
	MaxAge              time.Duration
	DumpFloorPct        float64 // 5m change must stay above this (negative) floor
}

// CooldownChecker reports whether a mint is on cooldown at the given time.
type CooldownChecker func(ctx context.Context, mint string, now time.Time) (bool, error)

// Verdict is the pipeline's output for one candidate.
type Verdict struct {
	Pass   bool
	Failed []string // predicate names that failed, in evaluation order
}

// Pipeline evaluates candidates against the entry rules.
type Pipeline struct {
	cfg      Config
	cooldown CooldownChecker
}

// New creates a Pipeline. cooldown may be nil, which disables predicate 1.
func New(cfg Config, cooldown CooldownChecker) *Pipeline {
	return &Pipeline{cfg: cfg, cooldown: cooldown}
}

// Evaluate runs all predicates in order, collecting every failure so
// diagnostics show the full picture rather than the first miss.
func (p *Pipeline) Evaluate(ctx context.Context, c domain.Candidate, now time.Time) Verdict {
	var failed []string
	snap := c.Snapshot

	if p.cooldown != nil {
		onCooldown, err := p.cooldown(ctx, c.Mint, now)
		// A failed lookup is treated as on-cooldown: never coerce missing
		// data into a green light.
		if err != nil || onCooldown {
			failed = append(failed, PredNotOnCooldown)
		}
	}

	if p.effectiveSignals(c) < p.cfg.MinSignals {
		failed = append(failed, PredHasSignals)
	}

	if BuySellRatio(snap.BuysM5, snap.SellsM5) < p.cfg.MinBuySellRatio {
		failed = append(failed, PredGoodRatio)
	}

	if snap.PriceChangeM5 < p.cfg.MinPumpPct {
		failed = append(failed, PredIsPumping)
	}

	// Fresh launches routinely show larger short-window swings that are
	// not indicative of exhaustion, so the ceiling does not apply to them.
	if !c.Tags.Has(domain.TagFreshLaunch) && snap.PriceChangeM5 > p.cfg.MaxPumpPct {
		failed = append(failed, PredNotTopped)
	}

	if snap.LiquidityUSD < p.liquidityFloor(c.Tags) {
		failed = append(failed, PredHasLiquidity)
	}

	if time.Duration(snap.AgeSeconds)*time.Second > p.cfg.MaxAge {
		failed = append(failed, PredNotTooOld)
	}

	if snap.PriceChangeM5 <= p.cfg.DumpFloorPct {
		failed = append(failed, PredNotDumping)
	}

	return Verdict{Pass: len(failed) == 0, Failed: failed}
}

// effectiveSignals counts distinct provenance tags plus two synthetic bonus
// signals for strong 1h trend and strong 5m pump.
func (p *Pipeline) effectiveSignals(c domain.Candidate) int {
	n := len(c.Tags)
	if c.Snapshot.PriceChangeH1 > p.cfg.StrongTrendPct {
		n++
	}
	if c.Snapshot.PriceChangeM5 > p.cfg.StrongPumpPct {
		n++
	}
	return n
}

// liquidityFloor returns the lowest floor any of the candidate's tags
// qualifies for, defaulting to the global minimum.
func (p *Pipeline) liquidityFloor(tags domain.TagSet) float64 {
	floor := p.cfg.MinLiquidityUSD
	for tag, override := range p.cfg.LiquidityFloorByTag {
		if tags.Has(tag) && override < floor {
			floor = override
		}
	}
	return floor
}

// BuySellRatio returns buys/sells with the documented zero-sell fallback:
// no sells yet reads as "no negative pressure", ratio 2 if there are buys,
// neutral 1 otherwise. The fallback is load-bearing for the goodRatio
// predicate, hence a named function rather than inline arithmetic.
func BuySellRatio(buys, sells int) float64 {
	if sells == 0 {
		if buys > 0 {
			return 2
		}
		return 1
	}
	return float64(buys) / float64(sells)
}

// String renders a verdict for log lines.
func (v Verdict) String() string {
	if v.Pass {
		return "PASS"
	}
	return fmt.Sprintf("FAIL %v", v.Failed)
}
