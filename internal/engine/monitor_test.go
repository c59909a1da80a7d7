package engine

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/breaker"
	"solana-sniper/internal/cooldown"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/executor"
	"solana-sniper/internal/pricing"
	"solana-sniper/internal/storage"
	"solana-sniper/internal/storage/memory"
)

const testMint = "7xKXtg2CW87d97TXJSDpbD5jBkheTqA83TZRuJosgAsU"

// fakeClock is a settable clock for deterministic hold durations.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type monitorFixture struct {
	store   *memory.StateStore
	pricer  *pricing.Static
	clock   *fakeClock
	monitor *Monitor
}

func newMonitorFixture(t *testing.T, exits ExitConfig) *monitorFixture {
	t.Helper()

	store := memory.NewStateStore()
	pricer := pricing.NewStatic(nil)
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	m, err := NewMonitor(MonitorOptions{
		Store:     store,
		Pricer:    pricer,
		Executor:  executor.NewSimulated(pricer, 0),
		Cooldowns: cooldown.New(store, 2*time.Hour, 30*time.Minute),
		Breaker:   breaker.New(store, breaker.Config{MaxDrawdownSOL: 0.1, MaxPositions: 3}),
		Exits:     exits,
		Now:       clock.Now,
	})
	require.NoError(t, err)

	return &monitorFixture{store: store, pricer: pricer, clock: clock, monitor: m}
}

func (f *monitorFixture) open(t *testing.T, sizeSOL float64) {
	t.Helper()
	err := f.store.AddPosition(context.Background(), &domain.Position{
		Mint:           testMint,
		Symbol:         "TEST",
		EntryPrice:     1.0,
		EntryTime:      f.clock.Now(),
		SizeSOL:        sizeSOL,
		InitialSizeSOL: sizeSOL,
		HighestPrice:   1.0,
		LastPrice:      1.0,
	})
	require.NoError(t, err)
}

func (f *monitorFixture) tickAt(t *testing.T, price float64) {
	t.Helper()
	f.pricer.Set(testMint, price)
	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.monitor.Tick(context.Background()))
}

func TestMonitorLadderRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t, testExitConfig())
	f.open(t, 0.1)

	// +25% reaches the first rung: sell half, keep the rest.
	f.tickAt(t, 1.25)

	pos, err := f.store.GetPosition(ctx, testMint)
	require.NoError(t, err)
	assert.InDelta(t, 0.05, pos.SizeSOL, 1e-9)
	assert.Equal(t, []float64{20}, pos.TriggeredRungs)
	assert.InDelta(t, 0.0125, pos.RealizedPnlSOL, 1e-9)
	assert.InDelta(t, 1.25, pos.LastPrice, 1e-9)

	trades, err := f.store.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonTakeProfit, trades[0].ExitReason)
	assert.True(t, trades[0].Partial)
	assert.InDelta(t, 0.05, trades[0].SizeSOL, 1e-9)

	// A partial exit is not a full close: no cooldown yet.
	_, err = f.store.GetCooldown(ctx, testMint)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// +30% sits between rungs: nothing fires, the high ratchets.
	f.tickAt(t, 1.30)
	pos, err = f.store.GetPosition(ctx, testMint)
	require.NoError(t, err)
	assert.InDelta(t, 1.30, pos.HighestPrice, 1e-9)

	// Fade back to 1.14 in sub-crash steps: trailing stop (12% off the
	// 1.30 high) closes the remainder.
	f.tickAt(t, 1.24)
	f.tickAt(t, 1.18)
	f.tickAt(t, 1.14)

	_, err = f.store.GetPosition(ctx, testMint)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	trades, err = f.store.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	final := trades[1]
	assert.Equal(t, domain.ExitReasonTrailingStop, final.ExitReason)
	assert.False(t, final.Partial)
	assert.InDelta(t, 0.05, final.SizeSOL, 1e-9)

	// Both fills were profitable: the profit cooldown applies.
	cd, err := f.store.GetCooldown(ctx, testMint)
	require.NoError(t, err)
	assert.True(t, cd.WasProfitable)

	sess, err := f.store.GetSession(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.0125+0.007, sess.RealizedPnlSOL, 1e-9)
	assert.False(t, sess.Halted)
}

func TestMonitorFlashCrashNotStopLoss(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t, testExitConfig())
	f.open(t, 0.1)

	// Single -7% tick: well above the cumulative stop-loss threshold but
	// past the velocity limit.
	f.tickAt(t, 0.93)

	trades, err := f.store.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonFlashCrash, trades[0].ExitReason)

	_, err = f.store.GetPosition(ctx, testMint)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cd, err := f.store.GetCooldown(ctx, testMint)
	require.NoError(t, err)
	assert.False(t, cd.WasProfitable)
}

func TestMonitorPriceUnavailableSkips(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t, testExitConfig())
	f.open(t, 0.1)

	// No price set for the mint: the tick must leave the position alone.
	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.monitor.Tick(ctx))

	pos, err := f.store.GetPosition(ctx, testMint)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, pos.LastPrice, 1e-9)
	assert.InDelta(t, 1.0, pos.HighestPrice, 1e-9)

	trades, err := f.store.ListTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)
}

// failingExecutor rejects every order.
type failingExecutor struct{}

func (failingExecutor) Buy(context.Context, string, float64) (*executor.Fill, error) {
	return nil, executor.ErrExecutionFailed
}

func (failingExecutor) Sell(context.Context, string, float64) (*executor.Fill, error) {
	return nil, executor.ErrExecutionFailed
}

func TestMonitorExecutionFailureLeavesStateUntouched(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStateStore()
	pricer := pricing.NewStatic(map[string]float64{testMint: 0.80})
	clock := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	m, err := NewMonitor(MonitorOptions{
		Store:     store,
		Pricer:    pricer,
		Executor:  failingExecutor{},
		Cooldowns: cooldown.New(store, 2*time.Hour, 30*time.Minute),
		Breaker:   breaker.New(store, breaker.Config{MaxDrawdownSOL: 0.5, MaxPositions: 3}),
		Exits:     testExitConfig(),
		Now:       clock.Now,
	})
	require.NoError(t, err)

	require.NoError(t, store.AddPosition(ctx, &domain.Position{
		Mint: testMint, EntryPrice: 1.0, EntryTime: clock.Now(),
		SizeSOL: 0.1, InitialSizeSOL: 0.1, HighestPrice: 1.0, LastPrice: 1.0,
	}))

	// -20% wants a flash-crash exit, but the sell fails: nothing may change,
	// and the trigger re-fires on the next tick.
	clock.Advance(2 * time.Second)
	require.NoError(t, m.Tick(ctx))

	pos, err := store.GetPosition(ctx, testMint)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, pos.SizeSOL, 1e-9)
	assert.InDelta(t, 1.0, pos.LastPrice, 1e-9)

	trades, err := store.ListTrades(ctx)
	require.NoError(t, err)
	assert.Empty(t, trades)

	sess, err := store.GetSession(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sess.RealizedPnlSOL, 1e-9)
}

func TestMonitorStopLossTripsBreaker(t *testing.T) {
	ctx := context.Background()
	f := newMonitorFixture(t, testExitConfig())
	f.open(t, 1.0)

	// Bleed to -15% in sub-crash steps; the final fill realizes -0.15 SOL,
	// past the 0.1 SOL drawdown limit.
	for _, p := range []float64{0.97, 0.94, 0.91, 0.88, 0.85} {
		f.tickAt(t, p)
	}

	trades, err := f.store.ListTrades(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, domain.ExitReasonStopLoss, trades[0].ExitReason)

	sess, err := f.store.GetSession(ctx)
	require.NoError(t, err)
	assert.True(t, sess.Halted)
	assert.NotEmpty(t, sess.HaltReason)
	assert.InDelta(t, -0.15, sess.RealizedPnlSOL, 1e-6)
}

// blockingPricer holds every lookup until released.
type blockingPricer struct {
	release chan struct{}
	calls   atomic.Int64
}

func (p *blockingPricer) Price(ctx context.Context, _ string) (float64, bool, error) {
	p.calls.Add(1)
	select {
	case <-p.release:
	case <-ctx.Done():
	}
	return 0, false, nil
}

func TestMonitorSkipsOverlappingCycles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := memory.NewStateStore()
	pricer := &blockingPricer{release: make(chan struct{})}
	require.NoError(t, store.AddPosition(ctx, &domain.Position{
		Mint: testMint, EntryPrice: 1.0, EntryTime: time.Now(),
		SizeSOL: 0.1, InitialSizeSOL: 0.1, HighestPrice: 1.0, LastPrice: 1.0,
	}))

	m, err := NewMonitor(MonitorOptions{
		Store:     store,
		Pricer:    pricer,
		Executor:  executor.NewSimulated(pricing.NewStatic(nil), 0),
		Cooldowns: cooldown.New(store, 2*time.Hour, 30*time.Minute),
		Breaker:   breaker.New(store, breaker.Config{MaxDrawdownSOL: 0.5, MaxPositions: 3}),
		Exits:     testExitConfig(),
		Interval:  5 * time.Millisecond,
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	// The first cycle blocks inside the price lookup; many intervals pass
	// but no second cycle may start.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(1), pricer.calls.Load())

	close(pricer.release)
	cancel()
	<-done
}
