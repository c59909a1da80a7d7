package domain

import "time"

// MarketSnapshot is the numeric market state of a token as reported by a
// discovery feed. All percentage fields are plain percentages (5.0 = +5%).
type MarketSnapshot struct {
	PriceUSD      float64
	PriceChangeM5 float64 // 5-minute price change %
	PriceChangeH1 float64 // 1-hour price change %
	PriceChangeD1 float64 // 24-hour price change %
	LiquidityUSD  float64
	BuysM5        int // buy transaction count, 5-minute window
	SellsM5       int // sell transaction count, 5-minute window
	AgeSeconds    int64
	BoostScore    float64 // social/boost score, adapter-specific scale
	FetchedAt     time.Time
}

// FieldCount returns the number of populated numeric fields. Used as a
// tie-break when two adapters report the same token in one cycle: the
// richer snapshot wins.
func (m MarketSnapshot) FieldCount() int {
	n := 0
	for _, v := range []float64{
		m.PriceUSD, m.PriceChangeM5, m.PriceChangeH1, m.PriceChangeD1,
		m.LiquidityUSD, float64(m.BuysM5), float64(m.SellsM5),
		float64(m.AgeSeconds), m.BoostScore,
	} {
		if v != 0 {
			n++
		}
	}
	return n
}

// Candidate is a token surfaced by discovery in the current cycle, not yet
// a position. Ephemeral: candidates are never persisted.
type Candidate struct {
	Mint     string
	Symbol   string
	Tags     TagSet
	Snapshot MarketSnapshot
}
