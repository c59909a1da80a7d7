package clickhouse

import (
	"context"
	"fmt"

	"solana-sniper/internal/domain"
)

// TradeSink appends closed trades to the analytics table. Inserts are
// best-effort from the engine's point of view: the operational store has
// already committed, so a sink failure is logged and dropped, never
// retried against live state.
type TradeSink struct {
	conn *Conn
}

// NewTradeSink creates a TradeSink.
func NewTradeSink(conn *Conn) *TradeSink {
	return &TradeSink{conn: conn}
}

// Insert appends one trade fill.
func (s *TradeSink) Insert(ctx context.Context, t *domain.ClosedTrade) error {
	partial := uint8(0)
	if t.Partial {
		partial = 1
	}

	err := s.conn.Exec(ctx, `
		INSERT INTO trade_fills (
			fill_id, mint, symbol, entry_price, entry_time,
			exit_price, exit_reason, exit_time,
			size_sol, pnl_sol, pnl_percent, partial, hold_duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.FillID, t.Mint, t.Symbol, t.EntryPrice, t.EntryTime,
		t.ExitPrice, t.ExitReason, t.ExitTime,
		t.SizeSOL, t.PnlSOL, t.PnlPercent, partial, t.HoldDuration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert trade fill: %w", err)
	}
	return nil
}
