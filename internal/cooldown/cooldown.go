// Package cooldown tracks per-token re-entry blackout windows. A
// profitable exit cools longer than a loss: after a profit the move has
// usually already happened, while the loss window only guards against an
// immediate revenge re-entry.
package cooldown

import (
	"context"
	"errors"
	"fmt"
	"time"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// Tracker answers "is this mint on cooldown" against store-backed entries.
type Tracker struct {
	store          storage.StateStore
	profitDuration time.Duration
	lossDuration   time.Duration
}

// New creates a Tracker. profitDuration must be strictly longer than
// lossDuration; config validation enforces this before construction.
func New(store storage.StateStore, profitDuration, lossDuration time.Duration) *Tracker {
	return &Tracker{
		store:          store,
		profitDuration: profitDuration,
		lossDuration:   lossDuration,
	}
}

// Entry builds the cooldown record for a full close at the given time.
// The monitoring loop persists it atomically with the closing trade.
func (t *Tracker) Entry(mint string, wasProfitable bool, now time.Time) *domain.CooldownEntry {
	return &domain.CooldownEntry{Mint: mint, ExitedAt: now, WasProfitable: wasProfitable}
}

// MarkExited unconditionally overwrites the cooldown entry for a mint.
func (t *Tracker) MarkExited(ctx context.Context, mint string, wasProfitable bool, now time.Time) error {
	if err := t.store.PutCooldown(ctx, t.Entry(mint, wasProfitable, now)); err != nil {
		return fmt.Errorf("mark exited %s: %w", mint, err)
	}
	return nil
}

// IsOnCooldown reports whether re-entry into the mint is still forbidden
// at the given time. Expired entries are simply ignored, not evicted.
func (t *Tracker) IsOnCooldown(ctx context.Context, mint string, now time.Time) (bool, error) {
	entry, err := t.store.GetCooldown(ctx, mint)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cooldown lookup %s: %w", mint, err)
	}
	return now.Sub(entry.ExitedAt) < t.DurationFor(entry.WasProfitable), nil
}

// DurationFor returns the blackout window for the given exit outcome.
func (t *Tracker) DurationFor(wasProfitable bool) time.Duration {
	if wasProfitable {
		return t.profitDuration
	}
	return t.lossDuration
}
