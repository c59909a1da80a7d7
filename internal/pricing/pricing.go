// Package pricing defines the live price lookup consumed by the
// monitoring loop.
package pricing

import (
	"context"
	"sync"
)

// PriceLookup returns a current price for a mint. The boolean is the
// explicit "unavailable" signal: a false means no data this tick, which
// callers must treat as skip, never as a zero price.
type PriceLookup interface {
	Price(ctx context.Context, mint string) (price float64, ok bool, err error)
}

// Static is a fixed price table, used in tests and dry runs.
type Static struct {
	mu     sync.RWMutex
	prices map[string]float64
}

// NewStatic creates a Static lookup with the given initial prices.
func NewStatic(prices map[string]float64) *Static {
	cp := make(map[string]float64, len(prices))
	for k, v := range prices {
		cp[k] = v
	}
	return &Static{prices: cp}
}

// Set overwrites the price for a mint. A zero price marks it unavailable.
func (s *Static) Set(mint string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[mint] = price
}

// Price returns the table entry, or unavailable if absent or zero.
func (s *Static) Price(_ context.Context, mint string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[mint]
	if !ok || p <= 0 {
		return 0, false, nil
	}
	return p, true, nil
}

var _ PriceLookup = (*Static)(nil)
