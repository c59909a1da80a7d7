// Package breaker implements the session circuit breaker: a sticky halt on
// excessive drawdown from the session P&L peak or on a fixed session loss
// budget. A halt is never cleared automatically; it forces a human
// checkpoint before trading resumes.
package breaker

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// Config holds the risk limits.
type Config struct {
	MaxDrawdownSOL      float64 // halt when peak - cumulative reaches this
	SessionLossLimitSOL float64 // halt when cumulative reaches -this; 0 disables
	MaxPositions        int     // bounded concurrent open positions
}

// Breaker gates position openings against session risk state.
type Breaker struct {
	store storage.StateStore
	cfg   Config
}

// New creates a Breaker over the given store.
func New(store storage.StateStore, cfg Config) *Breaker {
	return &Breaker{store: store, cfg: cfg}
}

// Apply folds one realized P&L delta into the session state: cumulative
// moves, peak ratchets up, and the halt flag flips on (never off) when a
// limit is breached. Pure, so the trigger arithmetic is testable without
// a store.
func (b *Breaker) Apply(s domain.SessionState, deltaSOL float64) domain.SessionState {
	s.RealizedPnlSOL += deltaSOL
	if s.RealizedPnlSOL > s.PeakPnlSOL {
		s.PeakPnlSOL = s.RealizedPnlSOL
	}
	if s.Halted {
		return s
	}
	if dd := s.Drawdown(); dd >= b.cfg.MaxDrawdownSOL {
		s.Halted = true
		s.HaltReason = fmt.Sprintf("drawdown %.4f SOL from peak %.4f reached limit %.4f",
			dd, s.PeakPnlSOL, b.cfg.MaxDrawdownSOL)
	} else if b.cfg.SessionLossLimitSOL > 0 && s.RealizedPnlSOL <= -b.cfg.SessionLossLimitSOL {
		s.Halted = true
		s.HaltReason = fmt.Sprintf("session loss %.4f SOL reached limit %.4f",
			-s.RealizedPnlSOL, b.cfg.SessionLossLimitSOL)
	}
	return s
}

// CanOpenPosition reports whether a new position may open: not halted, a
// slot free, and the session loss budget intact. The blocking reason is
// returned for logging.
func (b *Breaker) CanOpenPosition(ctx context.Context) (bool, string, error) {
	sess, err := b.store.GetSession(ctx)
	if err != nil {
		return false, "", fmt.Errorf("load session: %w", err)
	}
	if sess.Halted {
		return false, "session halted: " + sess.HaltReason, nil
	}
	if b.cfg.SessionLossLimitSOL > 0 && sess.RealizedPnlSOL <= -b.cfg.SessionLossLimitSOL {
		return false, "session loss limit breached", nil
	}

	open, err := b.store.CountOpenPositions(ctx)
	if err != nil {
		return false, "", fmt.Errorf("count positions: %w", err)
	}
	if open >= b.cfg.MaxPositions {
		return false, fmt.Sprintf("all %d position slots in use", b.cfg.MaxPositions), nil
	}
	return true, "", nil
}

// Resume is the explicit operator action that clears a halt.
func (b *Breaker) Resume(ctx context.Context) error {
	sess, err := b.store.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if !sess.Halted {
		return nil
	}
	sess.Halted = false
	sess.HaltReason = ""
	if err := b.store.PutSession(ctx, sess); err != nil {
		return fmt.Errorf("clear halt: %w", err)
	}
	return nil
}
