// Package scanner drives the low-frequency discovery loop: fan out to the
// source adapters, aggregate, filter, and open positions while the breaker
// and slot gates allow.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"solana-sniper/internal/advisor"
	"solana-sniper/internal/aggregator"
	"solana-sniper/internal/breaker"
	"solana-sniper/internal/domain"
	"solana-sniper/internal/executor"
	"solana-sniper/internal/feeds"
	"solana-sniper/internal/filter"
	"solana-sniper/internal/observability"
	"solana-sniper/internal/storage"
)

// Scanner runs discovery cycles.
type Scanner struct {
	adapters       []feeds.SourceAdapter
	store          storage.StateStore
	pipeline       *filter.Pipeline
	breaker        *breaker.Breaker
	exec           executor.Executor
	advisor        advisor.Advisor
	interval       time.Duration
	adapterTimeout time.Duration
	topK           map[domain.Tier]int
	sizeSOL        float64
	maxSizeSOL     float64
	logger         *log.Logger
	metrics        *observability.Metrics
	now            func() time.Time
}

// Options contains configuration for creating a Scanner.
type Options struct {
	Adapters       []feeds.SourceAdapter
	Store          storage.StateStore
	Pipeline       *filter.Pipeline
	Breaker        *breaker.Breaker
	Executor       executor.Executor
	Advisor        advisor.Advisor // optional
	Interval       time.Duration
	AdapterTimeout time.Duration
	TopK           map[domain.Tier]int
	SizeSOL        float64
	MaxSizeSOL     float64
	Logger         *log.Logger
	Metrics        *observability.Metrics // optional
	Now            func() time.Time       // optional clock
}

// New creates a Scanner.
func New(opts Options) (*Scanner, error) {
	if opts.Store == nil || opts.Pipeline == nil || opts.Breaker == nil || opts.Executor == nil {
		return nil, fmt.Errorf("scanner: missing dependency")
	}
	if opts.SizeSOL <= 0 {
		return nil, fmt.Errorf("scanner: non-positive position size")
	}

	interval := opts.Interval
	if interval == 0 {
		interval = 30 * time.Second
	}
	adapterTimeout := opts.AdapterTimeout
	if adapterTimeout == 0 {
		adapterTimeout = 10 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	adv := opts.Advisor
	if adv == nil {
		adv = advisor.Noop{}
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Scanner{
		adapters:       opts.Adapters,
		store:          opts.Store,
		pipeline:       opts.Pipeline,
		breaker:        opts.Breaker,
		exec:           opts.Executor,
		advisor:        adv,
		interval:       interval,
		adapterTimeout: adapterTimeout,
		topK:           opts.TopK,
		sizeSOL:        opts.SizeSOL,
		maxSizeSOL:     opts.MaxSizeSOL,
		logger:         logger,
		metrics:        opts.Metrics,
		now:            now,
	}, nil
}

// Run blocks until the context is cancelled, running one discovery cycle
// per interval. Cycles run strictly sequentially.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Printf("scanner started, interval %v, %d adapters", s.interval, len(s.adapters))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Println("scanner stopping...")
			return ctx.Err()
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Printf("scan cycle: %v", err)
			}
		}
	}
}

// Scan runs one discovery cycle.
func (s *Scanner) Scan(ctx context.Context) error {
	start := s.now()

	batches := s.collect(ctx)
	candidates := aggregator.Merge(batches)
	screened := aggregator.Screen(candidates, s.topK)
	s.logger.Printf("scan: %d candidates from %d adapters, %d screened",
		len(candidates), len(s.adapters), len(screened))

	opened := 0
	for _, cand := range screened {
		ok, err := s.tryOpen(ctx, cand)
		if err != nil {
			if errors.Is(err, errNoSlot) {
				break // gates are cycle-wide, no point screening the rest
			}
			s.logger.Printf("candidate %s: %v", cand.Mint, err)
			continue
		}
		if ok {
			opened++
		}
	}

	if m := s.metrics; m != nil {
		m.ScanDuration.Observe(s.now().Sub(start).Seconds())
	}
	if opened > 0 {
		s.logger.Printf("scan: opened %d positions", opened)
	}
	return nil
}

// errNoSlot aborts the rest of a cycle when the breaker or slot gate says no.
var errNoSlot = errors.New("no slot available")

// collect fans out to every adapter with its own bounded timeout. One
// failing adapter contributes an empty batch and never blocks the others.
func (s *Scanner) collect(ctx context.Context) []aggregator.Batch {
	batches := make([]aggregator.Batch, len(s.adapters))
	var wg sync.WaitGroup

	for i, adapter := range s.adapters {
		wg.Add(1)
		go func(i int, adapter feeds.SourceAdapter) {
			defer wg.Done()

			actx, cancel := context.WithTimeout(ctx, s.adapterTimeout)
			defer cancel()

			cands, err := adapter.Fetch(actx)
			if err != nil {
				s.logger.Printf("adapter %s: %v", adapter.Name(), err)
				if s.metrics != nil {
					s.metrics.AdapterErrors.WithLabelValues(adapter.Name()).Inc()
				}
				cands = nil
			}
			if s.metrics != nil {
				s.metrics.CandidatesSeen.WithLabelValues(adapter.Name()).Add(float64(len(cands)))
			}
			batches[i] = aggregator.Batch{Adapter: adapter.Name(), Candidates: cands}
		}(i, adapter)
	}

	wg.Wait()
	return batches
}

// tryOpen filters one candidate and opens a position if every gate allows.
// Returns errNoSlot when the breaker or slot gate blocks the whole cycle.
func (s *Scanner) tryOpen(ctx context.Context, cand domain.Candidate) (bool, error) {
	verdict := s.pipeline.Evaluate(ctx, cand, s.now())
	if !verdict.Pass {
		// FAIL candidates are logged only, never persisted.
		s.logger.Printf("filtered %s: %v", cand.Mint, verdict.Failed)
		if s.metrics != nil {
			for _, pred := range verdict.Failed {
				s.metrics.FilterFailures.WithLabelValues(pred).Inc()
			}
		}
		return false, nil
	}
	if s.metrics != nil {
		s.metrics.CandidatesPass.Inc()
	}

	allowed, reason, err := s.breaker.CanOpenPosition(ctx)
	if err != nil {
		return false, err
	}
	if !allowed {
		s.logger.Printf("entry blocked: %s", reason)
		if s.metrics != nil {
			s.metrics.EntriesRejected.WithLabelValues("breaker").Inc()
		}
		return false, errNoSlot
	}

	// Advice only ever adjusts sizing; mechanical PASS already decided the
	// entry, and a skip/hold advisor leaves the fixed size in place.
	adv, advErr := s.advisor.Advise(ctx, advisor.Request{Candidate: cand, ProposedSizeSOL: s.sizeSOL})
	size := advisor.SizeFor(adv, advErr, s.sizeSOL, s.maxSizeSOL)

	fill, err := s.exec.Buy(ctx, cand.Mint, size)
	if err != nil {
		if s.metrics != nil {
			s.metrics.EntriesRejected.WithLabelValues("executor").Inc()
		}
		return false, fmt.Errorf("buy %.4f SOL: %w", size, err)
	}

	now := s.now()
	pos := &domain.Position{
		Mint:           cand.Mint,
		Symbol:         cand.Symbol,
		EntryPrice:     fill.Price,
		EntryTime:      now,
		SizeSOL:        size,
		InitialSizeSOL: size,
		HighestPrice:   fill.Price,
		LastPrice:      fill.Price,
		Tags:           cand.Tags,
	}
	if err := s.store.AddPosition(ctx, pos); err != nil {
		if errors.Is(err, storage.ErrPositionOpen) {
			// Invariant guard: reject the operation, keep the loop alive.
			return false, fmt.Errorf("open rejected: %w", err)
		}
		return false, fmt.Errorf("persist position: %w", err)
	}

	s.logger.Printf("opened %s (%s): %.4f SOL at %.8f, tags %v",
		cand.Mint, cand.Symbol, size, fill.Price, cand.Tags.Slice())
	if s.metrics != nil {
		s.metrics.PositionsOpened.Inc()
	}
	return true, nil
}
