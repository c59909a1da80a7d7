// Package engine owns the position lifecycle: every monitoring tick it
// re-prices each open position, walks the exit-trigger ladder, and
// persists the outcome through the state store's serialized operations.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-sniper/internal/breaker"
	"solana-sniper/internal/cooldown"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/executor"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/pricing"
	"solana-sniper/internal/storage"
)

// TradeSink mirrors closed trades into an analytics store. Sink failures
// are logged and dropped: the operational store has already committed.
type TradeSink interface {
	Insert(ctx context.Context, t *domain.ClosedTrade) error
}

// Monitor drives the high-frequency monitoring loop.
type Monitor struct {
	store     storage.StateStore
	pricer    pricing.PriceLookup
	exec      executor.Executor
	cooldowns *cooldown.Tracker
	breaker   *breaker.Breaker
	cfg       ExitConfig
	interval  time.Duration
	logger    *log.Logger
	metrics   *observability.Metrics
	sink      TradeSink
	now       func() time.Time

	// cycleMu is the cycle-in-progress guard: a tick that comes due while
	// the previous one is still running is skipped, never overlapped.
	cycleMu sync.Mutex
}

// MonitorOptions contains configuration for creating a Monitor.
type MonitorOptions struct {
	Store     storage.StateStore
	Pricer    pricing.PriceLookup
	Executor  executor.Executor
	Cooldowns *cooldown.Tracker
	Breaker   *breaker.Breaker
	Exits     ExitConfig
	Interval  time.Duration
	Logger    *log.Logger
	Metrics   *observability.Metrics // optional
	Sink      TradeSink              // optional analytics mirror
	Now       func() time.Time       // optional clock, defaults to time.Now
}

// NewMonitor creates a Monitor.
func NewMonitor(opts MonitorOptions) (*Monitor, error) {
	if opts.Store == nil || opts.Pricer == nil || opts.Executor == nil ||
		opts.Cooldowns == nil || opts.Breaker == nil {
		return nil, fmt.Errorf("monitor: missing dependency")
	}
	if err := opts.Exits.Validate(); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	interval := opts.Interval
	if interval == 0 {
		interval = 2 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Monitor{
		store:     opts.Store,
		pricer:    opts.Pricer,
		exec:      opts.Executor,
		cooldowns: opts.Cooldowns,
		breaker:   opts.Breaker,
		cfg:       opts.Exits,
		interval:  interval,
		logger:    logger,
		metrics:   opts.Metrics,
		sink:      opts.Sink,
		now:       now,
	}, nil
}

// Run blocks until the context is cancelled, evaluating all open positions
// every interval.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Printf("monitor started, interval %v", m.interval)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Println("monitor stopping...")
			return ctx.Err()
		case <-ticker.C:
			if !m.cycleMu.TryLock() {
				if m.metrics != nil {
					m.metrics.TicksSkipped.Inc()
				}
				m.logger.Println("monitor tick skipped: previous cycle still running")
				continue
			}
			if err := m.Tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.logger.Printf("monitor tick: %v", err)
			}
			m.cycleMu.Unlock()
		}
	}
}

// Tick evaluates every open position once. Per-position failures are
// logged and do not abort the cycle.
func (m *Monitor) Tick(ctx context.Context) error {
	start := m.now()

	positions, err := m.store.ListPositions(ctx)
	if err != nil {
		return fmt.Errorf("list positions: %w", err)
	}

	for _, pos := range positions {
		if err := m.evaluate(ctx, pos); err != nil {
			m.logger.Printf("position %s: %v", pos.Mint, err)
		}
	}

	if m.metrics != nil {
		m.metrics.TickDuration.Observe(m.now().Sub(start).Seconds())
		m.metrics.OpenPositions.Set(float64(len(positions)))
	}
	return nil
}

// evaluate advances one position by one tick.
func (m *Monitor) evaluate(ctx context.Context, pos *domain.Position) error {
	price, ok, err := m.pricer.Price(ctx, pos.Mint)
	if err != nil || !ok {
		// No data this tick: skip with no state change rather than risk a
		// false exit on an assumed price.
		if m.metrics != nil {
			m.metrics.PriceUnavailable.Inc()
		}
		if err != nil {
			return fmt.Errorf("price lookup: %w", err)
		}
		return nil
	}

	prevPrice := pos.LastPrice
	if prevPrice <= 0 {
		prevPrice = pos.EntryPrice
	}
	if price > pos.HighestPrice {
		pos.HighestPrice = price
	}

	now := m.now()
	trig := EvaluateExit(pos, price, prevPrice, now, m.cfg)
	if trig == nil {
		pos.LastPrice = price
		if err := m.store.UpdatePosition(ctx, pos); err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		return nil
	}

	return m.exit(ctx, pos, trig, price, now)
}

// exit executes one fired trigger. Execution failure leaves all state
// untouched; the trigger will re-fire next tick.
func (m *Monitor) exit(ctx context.Context, pos *domain.Position, trig *Trigger, price float64, now time.Time) error {
	sellSize := pos.SizeSOL * trig.SellFraction
	if trig.Full() {
		sellSize = pos.SizeSOL
	}

	fill, err := m.exec.Sell(ctx, pos.Mint, sellSize)
	if err != nil {
		if m.metrics != nil {
			m.metrics.ExecutionRetries.Inc()
		}
		return fmt.Errorf("sell %.4f SOL (%s): %w", sellSize, trig.Reason, err)
	}

	pnlPct := pos.PnlPercent(fill.Price)
	pnlSOL := sellSize * pnlPct / 100

	trade := &domain.ClosedTrade{
		FillID:       fill.FillID,
		Mint:         pos.Mint,
		Symbol:       pos.Symbol,
		EntryPrice:   pos.EntryPrice,
		EntryTime:    pos.EntryTime,
		ExitPrice:    fill.Price,
		ExitReason:   trig.Reason,
		ExitTime:     now,
		SizeSOL:      sellSize,
		PnlSOL:       pnlSOL,
		PnlPercent:   pnlPct,
		Partial:      !trig.Full(),
		HoldDuration: pos.HoldDuration(now),
	}

	sess, err := m.store.GetSession(ctx)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	newSess := m.breaker.Apply(*sess, pnlSOL)

	bundle := storage.PositionClose{Trade: trade, Session: &newSess}

	if trig.Full() {
		wasProfitable := pos.RealizedPnlSOL+pnlSOL > 0
		bundle.Cooldown = m.cooldowns.Entry(pos.Mint, wasProfitable, now)
	} else {
		remaining := *pos
		remaining.SizeSOL -= sellSize
		remaining.TriggeredRungs = append(append([]float64(nil), pos.TriggeredRungs...), trig.RungPct)
		remaining.RealizedPnlSOL += pnlSOL
		remaining.LastPrice = price
		bundle.Position = &remaining
	}

	if err := m.store.ClosePosition(ctx, bundle); err != nil {
		return fmt.Errorf("persist exit (%s): %w", trig.Reason, err)
	}

	if m.sink != nil {
		if err := m.sink.Insert(ctx, trade); err != nil {
			m.logger.Printf("analytics sink: %v", err)
		}
	}

	m.logger.Printf("exit %s %s: sold %.4f SOL at %.8f, pnl %+.2f%% (%+.4f SOL)%s",
		pos.Mint, trig.Reason, sellSize, fill.Price, pnlPct, pnlSOL,
		partialSuffix(trade.Partial))
	if newSess.Halted && !sess.Halted {
		m.logger.Printf("SESSION HALTED: %s", newSess.HaltReason)
	}

	if m.metrics != nil {
		m.metrics.ExitsByReason.WithLabelValues(trig.Reason).Inc()
		if trig.Full() {
			m.metrics.PositionsClosed.Inc()
		}
		m.metrics.RealizedPnlSOL.Set(newSess.RealizedPnlSOL)
		m.metrics.PeakPnlSOL.Set(newSess.PeakPnlSOL)
		if newSess.Halted {
			m.metrics.SessionHalted.Set(1)
		}
	}
	return nil
}

func partialSuffix(partial bool) string {
	if partial {
		return " [partial]"
	}
	return ""
}
