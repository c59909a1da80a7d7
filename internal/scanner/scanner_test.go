package scanner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-sniper/internal/advisor"
	"solana-sniper/internal/breaker"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/executor"
	"solana-sniper/internal/feeds"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/storage/memory"
)

// stubAdapter returns a fixed batch or a fixed error.
type stubAdapter struct {
	name  string
	cands []domain.Candidate
	err   error
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) Fetch(context.Context) ([]domain.Candidate, error) {
	return a.cands, a.err
}

// recordingExecutor fills every buy at a fixed price and remembers them.
type recordingExecutor struct {
	buys []string
}

func (e *recordingExecutor) Buy(_ context.Context, mint string, sizeSOL float64) (*executor.Fill, error) {
	e.buys = append(e.buys, mint)
	return &executor.Fill{
		FillID: "fill-" + mint, Mint: mint, Side: executor.SideBuy,
		SizeSOL: sizeSOL, Price: 1.0, ExecutedAt: time.Now(),
	}, nil
}

func (e *recordingExecutor) Sell(_ context.Context, mint string, sizeSOL float64) (*executor.Fill, error) {
	return &executor.Fill{
		FillID: "sell-" + mint, Mint: mint, Side: executor.SideSell,
		SizeSOL: sizeSOL, Price: 1.0, ExecutedAt: time.Now(),
	}, nil
}

// permissivePipeline passes any candidate with non-negative 5m change.
func permissivePipeline() *filter.Pipeline {
	return filter.New(filter.Config{
		DumpFloorPct: -1,
		MaxAge:       24 * time.Hour,
	}, nil)
}

func candidate(mint string) domain.Candidate {
	return domain.Candidate{
		Mint:   mint,
		Symbol: "TEST",
		Tags:   domain.NewTagSet(domain.TagTrending),
	}
}

type scanFixture struct {
	store   *memory.StateStore
	exec    *recordingExecutor
	scanner *Scanner
}

func newScanFixture(t *testing.T, adapters ...*stubAdapter) *scanFixture {
	t.Helper()

	store := memory.NewStateStore()
	exec := &recordingExecutor{}

	src := make([]feeds.SourceAdapter, 0, len(adapters))
	for _, a := range adapters {
		src = append(src, a)
	}

	s, err := New(Options{
		Adapters:       src,
		Store:          store,
		Pipeline:       permissivePipeline(),
		Breaker:        breaker.New(store, breaker.Config{MaxDrawdownSOL: 0.5, MaxPositions: 2}),
		Executor:       exec,
		Advisor:        advisor.Noop{},
		AdapterTimeout: time.Second,
		SizeSOL:        0.1,
		MaxSizeSOL:     0.5,
	})
	require.NoError(t, err)

	return &scanFixture{store: store, exec: exec, scanner: s}
}

func TestScanOpensPassingCandidates(t *testing.T) {
	ctx := context.Background()
	f := newScanFixture(t, &stubAdapter{
		name:  "trending",
		cands: []domain.Candidate{candidate("mintA"), candidate("mintB")},
	})

	require.NoError(t, f.scanner.Scan(ctx))

	n, err := f.store.CountOpenPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"mintA", "mintB"}, f.exec.buys)

	pos, err := f.store.GetPosition(ctx, "mintA")
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos.EntryPrice)
	assert.Equal(t, 0.1, pos.SizeSOL)
	assert.Equal(t, pos.SizeSOL, pos.InitialSizeSOL)
}

func TestScanAdapterFailureIsolated(t *testing.T) {
	ctx := context.Background()
	f := newScanFixture(t,
		&stubAdapter{name: "broken", err: errors.New("feed down")},
		&stubAdapter{name: "trending", cands: []domain.Candidate{candidate("mintA")}},
	)

	// The broken adapter contributes nothing; the healthy one still opens.
	require.NoError(t, f.scanner.Scan(ctx))

	n, err := f.store.CountOpenPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestScanRespectsSlotLimit(t *testing.T) {
	ctx := context.Background()
	f := newScanFixture(t, &stubAdapter{
		name: "trending",
		cands: []domain.Candidate{
			candidate("mintA"), candidate("mintB"), candidate("mintC"),
		},
	})

	// MaxPositions is 2: the third candidate finds no slot.
	require.NoError(t, f.scanner.Scan(ctx))

	n, err := f.store.CountOpenPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, f.exec.buys, 2, "no buy may be attempted without a slot")
}

func TestScanBlockedWhenHalted(t *testing.T) {
	ctx := context.Background()
	f := newScanFixture(t, &stubAdapter{
		name:  "trending",
		cands: []domain.Candidate{candidate("mintA")},
	})

	require.NoError(t, f.store.PutSession(ctx, &domain.SessionState{
		Halted: true, HaltReason: "drawdown limit",
	}))

	require.NoError(t, f.scanner.Scan(ctx))

	n, err := f.store.CountOpenPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, f.exec.buys)
}

func TestScanSkipsFilteredCandidates(t *testing.T) {
	ctx := context.Background()

	dumping := candidate("mintA")
	dumping.Snapshot.PriceChangeM5 = -5 // fails the dump floor

	f := newScanFixture(t, &stubAdapter{
		name:  "trending",
		cands: []domain.Candidate{dumping, candidate("mintB")},
	})

	require.NoError(t, f.scanner.Scan(ctx))

	_, err := f.store.GetPosition(ctx, "mintA")
	assert.Error(t, err)
	_, err = f.store.GetPosition(ctx, "mintB")
	assert.NoError(t, err)
}

func TestScanDuplicateMintRejected(t *testing.T) {
	ctx := context.Background()
	f := newScanFixture(t, &stubAdapter{
		name:  "trending",
		cands: []domain.Candidate{candidate("mintA")},
	})

	require.NoError(t, f.scanner.Scan(ctx))
	// Second cycle surfaces the same mint again; the open-position
	// invariant rejects it and the cycle stays alive.
	require.NoError(t, f.scanner.Scan(ctx))

	n, err := f.store.CountOpenPositions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
