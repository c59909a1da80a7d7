// Package storage defines the durable state store owned by the trading
// engine: open positions, cooldowns, session risk state, and the
// append-only trade history.
//
// Every operation is a full load-mutate-persist unit and is serialized
// relative to every other operation. The discovery loop and the monitoring
// loop share state only through this interface; neither ever holds a raw
// reference into another loop's data.
package storage

import (
	"context"

	"solana-sniper/internal/domain"
)

// PositionClose bundles everything one exit fill must persist as a single
// atomic unit: the trade-history record, the surviving position (nil when
// the exit was 100%), the cooldown overwrite (full closes only), and the
// post-exit session state.
type PositionClose struct {
	Trade    *domain.ClosedTrade   // required
	Position *domain.Position      // updated position for partial exits; nil removes it
	Cooldown *domain.CooldownEntry // set only when the position fully closed
	Session  *domain.SessionState  // required: session after realizing this fill's P&L
}

// StateStore is the sole durable owner of positions, cooldowns, session
// state, and trade history.
type StateStore interface {
	// AddPosition opens a position. Returns ErrPositionOpen if the mint
	// already has one, ErrInvalidInput on a non-positive entry price.
	AddPosition(ctx context.Context, p *domain.Position) error

	// GetPosition retrieves an open position. Returns ErrNotFound if the
	// mint has no open position.
	GetPosition(ctx context.Context, mint string) (*domain.Position, error)

	// ListPositions retrieves all open positions, ordered by entry time.
	ListPositions(ctx context.Context) ([]*domain.Position, error)

	// UpdatePosition persists tick-to-tick fields (highest price, last
	// price). Returns ErrNotFound if the position does not exist.
	UpdatePosition(ctx context.Context, p *domain.Position) error

	// CountOpenPositions returns the number of open positions.
	CountOpenPositions(ctx context.Context) (int, error)

	// ClosePosition persists one exit fill atomically. Returns ErrNotFound
	// if no position is open for the trade's mint.
	ClosePosition(ctx context.Context, bundle PositionClose) error

	// ListTrades retrieves the trade history, ordered by exit time.
	ListTrades(ctx context.Context) ([]*domain.ClosedTrade, error)

	// GetCooldown retrieves the cooldown entry for a mint. Returns
	// ErrNotFound if the token has never fully closed.
	GetCooldown(ctx context.Context, mint string) (*domain.CooldownEntry, error)

	// PutCooldown unconditionally overwrites the cooldown entry for a mint.
	PutCooldown(ctx context.Context, e *domain.CooldownEntry) error

	// GetSession retrieves the singleton session state. Stores guarantee a
	// session exists, so this never returns ErrNotFound.
	GetSession(ctx context.Context) (*domain.SessionState, error)

	// PutSession overwrites the singleton session state.
	PutSession(ctx context.Context, s *domain.SessionState) error
}
