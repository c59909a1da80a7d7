package filter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/domain"
)

func testConfig() Config {
	return Config{
		MinSignals:      2,
		StrongTrendPct:  25,
		StrongPumpPct:   10,
		MinBuySellRatio: 1.5,
		MinPumpPct:      2,
		MaxPumpPct:      50,
		MinLiquidityUSD: 10000,
		LiquidityFloorByTag: map[domain.Tag]float64{
			domain.TagLaunchpad: 4000,
		},
		MaxAge:       24 * time.Hour,
		DumpFloorPct: -2,
	}
}

// passingCandidate satisfies every predicate under testConfig.
func passingCandidate() domain.Candidate {
	return domain.Candidate{
		Mint: "GoodMint1111111111111111111111111111111111",
		Tags: domain.NewTagSet(domain.TagTrending, domain.TagBoosted),
		Snapshot: domain.MarketSnapshot{
			PriceChangeM5: 5,
			PriceChangeH1: 10,
			BuysM5:        30,
			SellsM5:       10,
			LiquidityUSD:  20000,
			AgeSeconds:    3600,
		},
	}
}

func notOnCooldown(context.Context, string, time.Time) (bool, error) { return false, nil }

func TestEvaluatePass(t *testing.T) {
	p := New(testConfig(), notOnCooldown)
	v := p.Evaluate(context.Background(), passingCandidate(), time.Now())
	assert.True(t, v.Pass)
	assert.Empty(t, v.Failed)
}

func TestEvaluateEachPredicateFlips(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.Candidate)
		want   string
	}{
		{
			name:   "too few signals",
			mutate: func(c *domain.Candidate) { c.Tags = domain.NewTagSet(domain.TagTrending) },
			want:   PredHasSignals,
		},
		{
			name:   "weak buy pressure",
			mutate: func(c *domain.Candidate) { c.Snapshot.BuysM5, c.Snapshot.SellsM5 = 10, 10 },
			want:   PredGoodRatio,
		},
		{
			name:   "not pumping",
			mutate: func(c *domain.Candidate) { c.Snapshot.PriceChangeM5 = 1 },
			want:   PredIsPumping,
		},
		{
			name:   "overextended",
			mutate: func(c *domain.Candidate) { c.Snapshot.PriceChangeM5 = 60 },
			want:   PredNotTopped,
		},
		{
			name:   "thin liquidity",
			mutate: func(c *domain.Candidate) { c.Snapshot.LiquidityUSD = 5000 },
			want:   PredHasLiquidity,
		},
		{
			name:   "too old",
			mutate: func(c *domain.Candidate) { c.Snapshot.AgeSeconds = 2 * 24 * 3600 },
			want:   PredNotTooOld,
		},
	}

	p := New(testConfig(), notOnCooldown)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := passingCandidate()
			tt.mutate(&c)
			v := p.Evaluate(context.Background(), c, time.Now())
			assert.False(t, v.Pass)
			assert.Contains(t, v.Failed, tt.want)
		})
	}
}

func TestEvaluateDumpingFailsBothPumpPredicates(t *testing.T) {
	p := New(testConfig(), notOnCooldown)
	c := passingCandidate()
	c.Snapshot.PriceChangeM5 = -3

	v := p.Evaluate(context.Background(), c, time.Now())
	assert.False(t, v.Pass)
	assert.Contains(t, v.Failed, PredIsPumping)
	assert.Contains(t, v.Failed, PredNotDumping)
}

func TestEvaluateCollectsAllFailures(t *testing.T) {
	p := New(testConfig(), notOnCooldown)
	c := passingCandidate()
	c.Tags = domain.NewTagSet(domain.TagTrending)
	c.Snapshot.LiquidityUSD = 100

	v := p.Evaluate(context.Background(), c, time.Now())
	assert.False(t, v.Pass)
	assert.Equal(t, []string{PredHasSignals, PredHasLiquidity}, v.Failed)
}

func TestEvaluateCooldownBlocks(t *testing.T) {
	onCooldown := func(context.Context, string, time.Time) (bool, error) { return true, nil }
	p := New(testConfig(), onCooldown)

	v := p.Evaluate(context.Background(), passingCandidate(), time.Now())
	assert.False(t, v.Pass)
	assert.Equal(t, []string{PredNotOnCooldown}, v.Failed)
}

func TestEvaluateCooldownErrorReadsAsOnCooldown(t *testing.T) {
	broken := func(context.Context, string, time.Time) (bool, error) {
		return false, errors.New("store down")
	}
	p := New(testConfig(), broken)

	v := p.Evaluate(context.Background(), passingCandidate(), time.Now())
	assert.False(t, v.Pass)
	assert.Contains(t, v.Failed, PredNotOnCooldown)
}

func TestEvaluateFreshLaunchBypassesOverextension(t *testing.T) {
	p := New(testConfig(), notOnCooldown)

	c := passingCandidate()
	c.Tags = domain.NewTagSet(domain.TagFreshLaunch, domain.TagLaunchpad)
	c.Snapshot.PriceChangeM5 = 80 // would fail notTopped otherwise
	c.Snapshot.AgeSeconds = 90

	v := p.Evaluate(context.Background(), c, time.Now())
	assert.True(t, v.Pass, "failed: %v", v.Failed)
}

func TestEvaluateLaunchpadLiquidityFloor(t *testing.T) {
	p := New(testConfig(), notOnCooldown)

	c := passingCandidate()
	c.Snapshot.LiquidityUSD = 6000 // below the 10k default floor

	v := p.Evaluate(context.Background(), c, time.Now())
	require.False(t, v.Pass)
	assert.Contains(t, v.Failed, PredHasLiquidity)

	// The same liquidity clears the launchpad venue's lower floor.
	c.Tags = c.Tags.Union(domain.NewTagSet(domain.TagLaunchpad))
	v = p.Evaluate(context.Background(), c, time.Now())
	assert.True(t, v.Pass, "failed: %v", v.Failed)
}

func TestEvaluateSyntheticSignals(t *testing.T) {
	p := New(testConfig(), notOnCooldown)

	// One tag is one short of MinSignals, but a strong 1h trend adds a
	// synthetic signal.
	c := passingCandidate()
	c.Tags = domain.NewTagSet(domain.TagTrending)
	c.Snapshot.PriceChangeH1 = 30

	v := p.Evaluate(context.Background(), c, time.Now())
	assert.True(t, v.Pass, "failed: %v", v.Failed)

	// A strong 5m pump counts too.
	c.Snapshot.PriceChangeH1 = 5
	c.Snapshot.PriceChangeM5 = 12
	v = p.Evaluate(context.Background(), c, time.Now())
	assert.True(t, v.Pass, "failed: %v", v.Failed)
}

func TestBuySellRatio(t *testing.T) {
	assert.Equal(t, 3.0, BuySellRatio(30, 10))
	assert.Equal(t, 2.0, BuySellRatio(5, 0), "no sells with buys reads as strong")
	assert.Equal(t, 1.0, BuySellRatio(0, 0), "no activity reads as neutral")
	assert.Equal(t, 0.5, BuySellRatio(5, 10))
}
