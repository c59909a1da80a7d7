package feeds

import (
	"context"
	"fmt"
	"strconv"

	"solana-sniper/internal/pricing"
)

// ScreenerPriceLookup serves live prices from the screener's per-token
// pair endpoint. A token with no pair data reports unavailable, never a
// zero price.
type ScreenerPriceLookup struct {
	client *ScreenerClient
}

// NewScreenerPriceLookup creates a price lookup over the screener client.
func NewScreenerPriceLookup(client *ScreenerClient) *ScreenerPriceLookup {
	return &ScreenerPriceLookup{client: client}
}

// Price implements pricing.PriceLookup. The most liquid pair's price wins
// when the token trades in several pools.
func (l *ScreenerPriceLookup) Price(ctx context.Context, mint string) (float64, bool, error) {
	pairs, err := l.client.fetchPairs(ctx, "/latest/dex/tokens/"+mint)
	if err != nil {
		return 0, false, fmt.Errorf("price %s: %w", mint, err)
	}

	best, bestLiq := 0.0, -1.0
	for _, p := range pairs {
		if p.ChainID != solanaChainID {
			continue
		}
		price, err := strconv.ParseFloat(p.PriceUsd, 64)
		if err != nil || price <= 0 {
			continue
		}
		if p.Liquidity.Usd > bestLiq {
			best, bestLiq = price, p.Liquidity.Usd
		}
	}
	if best <= 0 {
		return 0, false, nil
	}
	return best, true, nil
}

var _ pricing.PriceLookup = (*ScreenerPriceLookup)(nil)
