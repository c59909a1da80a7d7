package feeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"solana-sniper/internal/domain"
)

const solanaChainID = "solana"

// ScreenerClient talks to a DexScreener-compatible pair screener API. All
// requests go through a shared client-side rate limiter so several
// adapters polling the same host stay under its request budget.
type ScreenerClient struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewScreenerClient creates a ScreenerClient allowing rps requests per
// second with the given burst.
func NewScreenerClient(baseURL string, timeout time.Duration, rps float64, burst int) *ScreenerClient {
	return &ScreenerClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Wire schema of the screener's pair objects.
type pairResponse struct {
	Pairs []pair `json:"pairs"`
}

type pair struct {
	ChainID       string      `json:"chainId"`
	DexID         string      `json:"dexId"`
	BaseToken     pairToken   `json:"baseToken"`
	PriceUsd      string      `json:"priceUsd"`
	Txns          pairTxns    `json:"txns"`
	PriceChange   pairChange  `json:"priceChange"`
	Liquidity     pairLiq     `json:"liquidity"`
	Boosts        pairBoosts  `json:"boosts"`
	PairCreatedAt json.Number `json:"pairCreatedAt"` // unix ms
}

type pairToken struct {
	Address string `json:"address"`
	Symbol  string `json:"symbol"`
}

type pairTxns struct {
	M5 buysSells `json:"m5"`
}

type buysSells struct {
	Buys  int `json:"buys"`
	Sells int `json:"sells"`
}

type pairChange struct {
	M5  float64 `json:"m5"`
	H1  float64 `json:"h1"`
	H24 float64 `json:"h24"`
}

type pairLiq struct {
	Usd float64 `json:"usd"`
}

type pairBoosts struct {
	Active float64 `json:"active"`
}

// fetchPairs performs one rate-limited GET and decodes the pair list.
func (c *ScreenerClient) fetchPairs(ctx context.Context, path string) ([]pair, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}

	var pr pairResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return pr.Pairs, nil
}

// toCandidate converts one pair into a candidate tagged by the adapter.
// Pairs with an unparseable or missing price are dropped rather than
// coerced to zero.
func toCandidate(p pair, tag domain.Tag, now time.Time) (domain.Candidate, bool) {
	if p.ChainID != solanaChainID || p.BaseToken.Address == "" {
		return domain.Candidate{}, false
	}
	price, err := strconv.ParseFloat(p.PriceUsd, 64)
	if err != nil || price <= 0 {
		return domain.Candidate{}, false
	}

	var age int64
	if createdMs, err := p.PairCreatedAt.Int64(); err == nil && createdMs > 0 {
		age = now.Unix() - createdMs/1000
	}

	return domain.Candidate{
		Mint:   p.BaseToken.Address,
		Symbol: p.BaseToken.Symbol,
		Tags:   domain.NewTagSet(tag),
		Snapshot: domain.MarketSnapshot{
			PriceUSD:      price,
			PriceChangeM5: p.PriceChange.M5,
			PriceChangeH1: p.PriceChange.H1,
			PriceChangeD1: p.PriceChange.H24,
			LiquidityUSD:  p.Liquidity.Usd,
			BuysM5:        p.Txns.M5.Buys,
			SellsM5:       p.Txns.M5.Sells,
			AgeSeconds:    age,
			BoostScore:    p.Boosts.Active,
			FetchedAt:     now,
		},
	}, true
}

// ScreenerAdapter polls one screener endpoint and tags everything it
// returns with a single provenance tag.
type ScreenerAdapter struct {
	name   string
	path   string
	tag    domain.Tag
	client *ScreenerClient
	now    func() time.Time
}

// NewTrendingAdapter surfaces tokens from the screener's trending list.
func NewTrendingAdapter(client *ScreenerClient) *ScreenerAdapter {
	return &ScreenerAdapter{name: "trending", path: "/latest/dex/trending?chain=" + solanaChainID, tag: domain.TagTrending, client: client, now: time.Now}
}

// NewBoostedAdapter surfaces tokens with active paid boosts.
func NewBoostedAdapter(client *ScreenerClient) *ScreenerAdapter {
	return &ScreenerAdapter{name: "boosted", path: "/token-boosts/top/" + solanaChainID, tag: domain.TagBoosted, client: client, now: time.Now}
}

// NewTopGainersAdapter surfaces the largest 24h gainers.
func NewTopGainersAdapter(client *ScreenerClient) *ScreenerAdapter {
	return &ScreenerAdapter{name: "gainers", path: "/latest/dex/gainers?chain=" + solanaChainID, tag: domain.TagTopGainer, client: client, now: time.Now}
}

// Name implements SourceAdapter.
func (a *ScreenerAdapter) Name() string { return a.name }

// Fetch implements SourceAdapter.
func (a *ScreenerAdapter) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	pairs, err := a.client.fetchPairs(ctx, a.path)
	if err != nil {
		return nil, err
	}

	now := a.now()
	out := make([]domain.Candidate, 0, len(pairs))
	for _, p := range pairs {
		if c, ok := toCandidate(p, a.tag, now); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ SourceAdapter = (*ScreenerAdapter)(nil)
