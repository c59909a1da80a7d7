package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"solana-sniper/internal/domain"
	"solana-sniper/internal/storage"
)

// StateStore implements storage.StateStore using PostgreSQL.
type StateStore struct {
	pool *Pool
}

// NewStateStore creates a StateStore and seeds the singleton session row
// if the database is fresh.
func NewStateStore(ctx context.Context, pool *Pool) (*StateStore, error) {
	s := &StateStore{pool: pool}
	_, err := pool.Exec(ctx, `
		INSERT INTO session_state (id, realized_pnl_sol, peak_pnl_sol, halted, halt_reason, started_at)
		VALUES (1, 0, 0, FALSE, '', $1)
		ON CONFLICT (id) DO NOTHING
	`, time.Now())
	if err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	return s, nil
}

// Compile-time interface check.
var _ storage.StateStore = (*StateStore)(nil)

const positionColumns = `
	mint, symbol, entry_price, entry_time, size_sol, initial_size_sol,
	highest_price, last_price, triggered_rungs, realized_pnl_sol, tags
`

// AddPosition opens a position. Returns ErrPositionOpen if the mint
// already has one.
func (s *StateStore) AddPosition(ctx context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" || p.EntryPrice <= 0 {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO positions (` + positionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.pool.Exec(ctx, query,
		p.Mint, p.Symbol, p.EntryPrice, p.EntryTime, p.SizeSOL, p.InitialSizeSOL,
		p.HighestPrice, p.LastPrice, p.TriggeredRungs, p.RealizedPnlSOL, tagStrings(p.Tags),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrPositionOpen
		}
		return fmt.Errorf("insert position: %w", err)
	}
	return nil
}

// GetPosition retrieves an open position by mint.
func (s *StateStore) GetPosition(ctx context.Context, mint string) (*domain.Position, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+positionColumns+` FROM positions WHERE mint = $1`, mint)
	p, err := scanPosition(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get position: %w", err)
	}
	return p, nil
}

// ListPositions retrieves all open positions ordered by entry time.
func (s *StateStore) ListPositions(ctx context.Context) ([]*domain.Position, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+positionColumns+` FROM positions ORDER BY entry_time, mint`)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []*domain.Position
	for rows.Next() {
		p, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePosition persists tick-to-tick position fields.
func (s *StateStore) UpdatePosition(ctx context.Context, p *domain.Position) error {
	if p == nil || p.Mint == "" {
		return storage.ErrInvalidInput
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE positions
		SET size_sol = $2, highest_price = $3, last_price = $4,
		    triggered_rungs = $5, realized_pnl_sol = $6
		WHERE mint = $1
	`, p.Mint, p.SizeSOL, p.HighestPrice, p.LastPrice, p.TriggeredRungs, p.RealizedPnlSOL)
	if err != nil {
		return fmt.Errorf("update position: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// CountOpenPositions returns the number of open positions.
func (s *StateStore) CountOpenPositions(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM positions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count positions: %w", err)
	}
	return n, nil
}

// ClosePosition persists one exit fill atomically in a single transaction.
func (s *StateStore) ClosePosition(ctx context.Context, bundle storage.PositionClose) error {
	if bundle.Trade == nil || bundle.Trade.Mint == "" || bundle.Session == nil {
		return storage.ErrInvalidInput
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	t := bundle.Trade
	if _, err := tx.Exec(ctx, `
		INSERT INTO closed_trades (
			fill_id, mint, symbol, entry_price, entry_time,
			exit_price, exit_reason, exit_time,
			size_sol, pnl_sol, pnl_percent, partial, hold_duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, t.FillID, t.Mint, t.Symbol, t.EntryPrice, t.EntryTime,
		t.ExitPrice, t.ExitReason, t.ExitTime,
		t.SizeSOL, t.PnlSOL, t.PnlPercent, t.Partial, t.HoldDuration.Milliseconds(),
	); err != nil {
		return fmt.Errorf("insert closed trade: %w", err)
	}

	if bundle.Position != nil {
		p := bundle.Position
		tag, err := tx.Exec(ctx, `
			UPDATE positions
			SET size_sol = $2, highest_price = $3, last_price = $4,
			    triggered_rungs = $5, realized_pnl_sol = $6
			WHERE mint = $1
		`, p.Mint, p.SizeSOL, p.HighestPrice, p.LastPrice, p.TriggeredRungs, p.RealizedPnlSOL)
		if err != nil {
			return fmt.Errorf("shrink position: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
	} else {
		tag, err := tx.Exec(ctx, `DELETE FROM positions WHERE mint = $1`, t.Mint)
		if err != nil {
			return fmt.Errorf("delete position: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
	}

	if bundle.Cooldown != nil {
		if err := putCooldown(ctx, tx, bundle.Cooldown); err != nil {
			return err
		}
	}

	if err := putSession(ctx, tx, bundle.Session); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit close: %w", err)
	}
	return nil
}

// ListTrades retrieves the trade history ordered by exit time.
func (s *StateStore) ListTrades(ctx context.Context) ([]*domain.ClosedTrade, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT fill_id, mint, symbol, entry_price, entry_time,
		       exit_price, exit_reason, exit_time,
		       size_sol, pnl_sol, pnl_percent, partial, hold_duration_ms
		FROM closed_trades ORDER BY exit_time, fill_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list trades: %w", err)
	}
	defer rows.Close()

	var out []*domain.ClosedTrade
	for rows.Next() {
		var t domain.ClosedTrade
		var holdMs int64
		if err := rows.Scan(
			&t.FillID, &t.Mint, &t.Symbol, &t.EntryPrice, &t.EntryTime,
			&t.ExitPrice, &t.ExitReason, &t.ExitTime,
			&t.SizeSOL, &t.PnlSOL, &t.PnlPercent, &t.Partial, &holdMs,
		); err != nil {
			return nil, fmt.Errorf("scan trade: %w", err)
		}
		t.HoldDuration = time.Duration(holdMs) * time.Millisecond
		out = append(out, &t)
	}
	return out, rows.Err()
}

// GetCooldown retrieves the cooldown entry for a mint.
func (s *StateStore) GetCooldown(ctx context.Context, mint string) (*domain.CooldownEntry, error) {
	var e domain.CooldownEntry
	err := s.pool.QueryRow(ctx,
		`SELECT mint, exited_at, was_profitable FROM cooldowns WHERE mint = $1`, mint,
	).Scan(&e.Mint, &e.ExitedAt, &e.WasProfitable)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get cooldown: %w", err)
	}
	return &e, nil
}

// PutCooldown unconditionally overwrites the cooldown entry for a mint.
func (s *StateStore) PutCooldown(ctx context.Context, e *domain.CooldownEntry) error {
	if e == nil || e.Mint == "" {
		return storage.ErrInvalidInput
	}
	return putCooldown(ctx, s.pool, e)
}

// GetSession retrieves the singleton session state.
func (s *StateStore) GetSession(ctx context.Context) (*domain.SessionState, error) {
	var sess domain.SessionState
	err := s.pool.QueryRow(ctx, `
		SELECT realized_pnl_sol, peak_pnl_sol, halted, halt_reason, started_at
		FROM session_state WHERE id = 1
	`).Scan(&sess.RealizedPnlSOL, &sess.PeakPnlSOL, &sess.Halted, &sess.HaltReason, &sess.StartedAt)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

// PutSession overwrites the singleton session state.
func (s *StateStore) PutSession(ctx context.Context, sess *domain.SessionState) error {
	if sess == nil {
		return storage.ErrInvalidInput
	}
	return putSession(ctx, s.pool, sess)
}

// execer abstracts pool vs transaction for statements shared between
// ClosePosition and the standalone Put operations.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

func putCooldown(ctx context.Context, db execer, e *domain.CooldownEntry) error {
	_, err := db.Exec(ctx, `
		INSERT INTO cooldowns (mint, exited_at, was_profitable)
		VALUES ($1, $2, $3)
		ON CONFLICT (mint) DO UPDATE
		SET exited_at = EXCLUDED.exited_at, was_profitable = EXCLUDED.was_profitable
	`, e.Mint, e.ExitedAt, e.WasProfitable)
	if err != nil {
		return fmt.Errorf("put cooldown: %w", err)
	}
	return nil
}

func putSession(ctx context.Context, db execer, sess *domain.SessionState) error {
	_, err := db.Exec(ctx, `
		UPDATE session_state
		SET realized_pnl_sol = $1, peak_pnl_sol = $2, halted = $3, halt_reason = $4
		WHERE id = 1
	`, sess.RealizedPnlSOL, sess.PeakPnlSOL, sess.Halted, sess.HaltReason)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// scanPosition reads one positions row.
func scanPosition(row pgx.Row) (*domain.Position, error) {
	var p domain.Position
	var tags []string
	if err := row.Scan(
		&p.Mint, &p.Symbol, &p.EntryPrice, &p.EntryTime, &p.SizeSOL, &p.InitialSizeSOL,
		&p.HighestPrice, &p.LastPrice, &p.TriggeredRungs, &p.RealizedPnlSOL, &tags,
	); err != nil {
		return nil, err
	}
	p.Tags = make(domain.TagSet, len(tags))
	for _, t := range tags {
		p.Tags[domain.Tag(t)] = struct{}{}
	}
	return &p, nil
}

// tagStrings flattens a tag set for a text[] column, deterministically.
func tagStrings(tags domain.TagSet) []string {
	slice := tags.Slice()
	out := make([]string, len(slice))
	for i, t := range slice {
		out[i] = string(t)
	}
	return out
}
