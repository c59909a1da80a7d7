// Package memory provides an in-memory StateStore for tests and
// simulate-mode runs without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// StateStore is an in-memory implementation of storage.StateStore. A single
// mutex serializes every operation; both loops run at low rates, so one
// lock is sufficient and keeps the atomicity argument trivial.
type StateStore struct {
	mu        sync.Mutex
	positions map[string]*domain.Position
	cooldowns map[string]*domain.CooldownEntry
	trades    []*domain.ClosedTrade
	session   domain.SessionState
}

// NewStateStore creates an empty in-memory state store with a fresh session.
func NewStateStore() *StateStore {
	return &StateStore{
		positions: make(map[string]*domain.Position),
		cooldowns: make(map[string]*domain.CooldownEntry),
		session:   domain.SessionState{StartedAt: time.Now()},
	}
}

func copyPosition(p *domain.Position) *domain.Position {
	cp := *p
	cp.TriggeredRungs = append([]float64(nil), p.TriggeredRungs...)
	cp.Tags = p.Tags.Union(nil)
	return &cp
}

// AddPosition opens a position. Returns ErrPositionOpen if the mint
// already has one.
func (s *StateStore) AddPosition(_ context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" || p.EntryPrice <= 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.positions[p.Mint]; exists {
		return storage.ErrPositionOpen
	}
	s.positions[p.Mint] = copyPosition(p)
	return nil
}

// GetPosition retrieves an open position by mint.
func (s *StateStore) GetPosition(_ context.Context, mint string) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.positions[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return copyPosition(p), nil
}

// ListPositions retrieves all open positions ordered by entry time.
func (s *StateStore) ListPositions(_ context.Context) ([]*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Position, 0, len(s.positions))
	for _, p := range s.positions {
		out = append(out, copyPosition(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EntryTime.Equal(out[j].EntryTime) {
			return out[i].Mint < out[j].Mint
		}
		return out[i].EntryTime.Before(out[j].EntryTime)
	})
	return out, nil
}

// UpdatePosition persists tick-to-tick position fields.
func (s *StateStore) UpdatePosition(_ context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[p.Mint]; !ok {
		return storage.ErrNotFound
	}
	s.positions[p.Mint] = copyPosition(p)
	return nil
}

// CountOpenPositions returns the number of open positions.
func (s *StateStore) CountOpenPositions(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.positions), nil
}

// ClosePosition persists one exit fill atomically: trade record, position
// removal or shrink, cooldown overwrite, and session state, all under one
// lock acquisition.
func (s *StateStore) ClosePosition(_ context.Context, bundle storage.PositionClose) error {
	if bundle.Trade == nil || bundle.Trade.Mint == "" || bundle.Session == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[bundle.Trade.Mint]; !ok {
		return storage.ErrNotFound
	}

	trade := *bundle.Trade
	s.trades = append(s.trades, &trade)

	if bundle.Position != nil {
		s.positions[bundle.Trade.Mint] = copyPosition(bundle.Position)
	} else {
		delete(s.positions, bundle.Trade.Mint)
	}

	if bundle.Cooldown != nil {
		cd := *bundle.Cooldown
		s.cooldowns[cd.Mint] = &cd
	}

	s.session = *bundle.Session
	return nil
}

// ListTrades retrieves the trade history in append order.
func (s *StateStore) ListTrades(_ context.Context) ([]*domain.ClosedTrade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.ClosedTrade, 0, len(s.trades))
	for _, t := range s.trades {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

// GetCooldown retrieves the cooldown entry for a mint.
func (s *StateStore) GetCooldown(_ context.Context, mint string) (*domain.CooldownEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.cooldowns[mint]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

// PutCooldown unconditionally overwrites the cooldown entry for a mint.
func (s *StateStore) PutCooldown(_ context.Context, e *domain.CooldownEntry) error {
	if e == nil || e.Mint == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.cooldowns[cp.Mint] = &cp
	return nil
}

// GetSession retrieves the singleton session state.
func (s *StateStore) GetSession(_ context.Context) (*domain.SessionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := s.session
	return &cp, nil
}

// PutSession overwrites the singleton session state.
func (s *StateStore) PutSession(_ context.Context, sess *domain.SessionState) error {
	if sess == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.session = *sess
	return nil
}

// Ensure StateStore implements storage.StateStore.
var _ storage.StateStore = (*StateStore)(nil)
