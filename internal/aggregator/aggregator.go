// Package aggregator merges per-adapter discovery batches into one
// deduplicated candidate set. Pure computation: it never fetches data.
package aggregator

import (
	"sort"

	"solana-sniper/internal/domain"
)

// Batch is the output of one source adapter for one discovery cycle.
type Batch struct {
	Adapter    string
	Candidates []domain.Candidate
}

// Merge combines adapter batches into a deduplicated candidate list. When a
// mint appears in multiple batches, tags are unioned and the most recently
// fetched snapshot wins; on equal fetch times the snapshot with more
// populated fields is kept. Data is never averaged or discarded.
func Merge(batches []Batch) []domain.Candidate {
	merged := make(map[string]*domain.Candidate)
	var order []string

	for _, b := range batches {
		for _, c := range b.Candidates {
			if c.Mint == "" {
				continue
			}
			cur, ok := merged[c.Mint]
			if !ok {
				cp := c
				cp.Tags = c.Tags.Union(nil)
				merged[c.Mint] = &cp
				order = append(order, c.Mint)
				continue
			}
			cur.Tags = cur.Tags.Union(c.Tags)
			if c.Symbol != "" && cur.Symbol == "" {
				cur.Symbol = c.Symbol
			}
			if snapshotPreferred(c.Snapshot, cur.Snapshot) {
				cur.Snapshot = c.Snapshot
			}
		}
	}

	out := make([]domain.Candidate, 0, len(order))
	for _, mint := range order {
		out = append(out, *merged[mint])
	}
	return out
}

// snapshotPreferred reports whether candidate snapshot a should replace b:
// fresher fetch wins, richer snapshot breaks ties.
func snapshotPreferred(a, b domain.MarketSnapshot) bool {
	if a.FetchedAt.After(b.FetchedAt) {
		return true
	}
	if a.FetchedAt.Before(b.FetchedAt) {
		return false
	}
	return a.FieldCount() > b.FieldCount()
}

// Screen orders candidates for downstream filtering: launch tier first,
// then social, then generic, each bounded to topK (0 = unbounded) under a
// deterministic per-tier sort key so results are reproducible given
// identical inputs.
func Screen(cands []domain.Candidate, topK map[domain.Tier]int) []domain.Candidate {
	byTier := map[domain.Tier][]domain.Candidate{}
	for _, c := range cands {
		tier := c.Tags.BestTier()
		byTier[tier] = append(byTier[tier], c)
	}

	var out []domain.Candidate
	for _, tier := range []domain.Tier{domain.TierLaunch, domain.TierSocial, domain.TierGeneric} {
		group := byTier[tier]
		sortTier(tier, group)
		if k := topK[tier]; k > 0 && len(group) > k {
			group = group[:k]
		}
		out = append(out, group...)
	}
	return out
}

// sortTier applies the tier's deterministic sort key, with mint as the
// final tie-break.
func sortTier(tier domain.Tier, group []domain.Candidate) {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		switch tier {
		case domain.TierLaunch:
			if a.Snapshot.AgeSeconds != b.Snapshot.AgeSeconds {
				return a.Snapshot.AgeSeconds < b.Snapshot.AgeSeconds
			}
		case domain.TierSocial:
			if a.Snapshot.BoostScore != b.Snapshot.BoostScore {
				return a.Snapshot.BoostScore > b.Snapshot.BoostScore
			}
		default:
			if a.Snapshot.PriceChangeD1 != b.Snapshot.PriceChangeD1 {
				return a.Snapshot.PriceChangeD1 > b.Snapshot.PriceChangeD1
			}
		}
		return a.Mint < b.Mint
	})
}
