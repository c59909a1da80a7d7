package feeds

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mr-tron/base58"

	"solana-sniper/internal/domain"
)

const (
	launchBuffer      = 256
	launchRetryDelay  = 1 * time.Second
	launchMaxRetryGap = 30 * time.Second
	mintByteLen       = 32
)

// launchEvent is the wire shape of one pool-creation push from the launch
// stream.
type launchEvent struct {
	Mint         string  `json:"mint"`
	Symbol       string  `json:"symbol"`
	PriceUsd     float64 `json:"priceUsd"`
	LiquidityUsd float64 `json:"liquidityUsd"`
	CreatedAt    int64   `json:"createdAt"` // unix ms
}

// LaunchStreamAdapter consumes a WebSocket stream of freshly created
// launchpad pools and buffers them between discovery cycles. Fetch drains
// the buffer; the read loop reconnects with backoff on any error.
type LaunchStreamAdapter struct {
	endpoint   string
	logger     *log.Logger
	now        func() time.Time
	retryDelay time.Duration

	mu  sync.Mutex
	buf []domain.Candidate
}

// NewLaunchStreamAdapter creates the adapter and starts its read loop,
// which runs until the context is cancelled.
func NewLaunchStreamAdapter(ctx context.Context, endpoint string, logger *log.Logger) *LaunchStreamAdapter {
	if logger == nil {
		logger = log.Default()
	}
	a := &LaunchStreamAdapter{endpoint: endpoint, logger: logger, now: time.Now, retryDelay: launchRetryDelay}
	go a.readLoop(ctx)
	return a
}

// Name implements SourceAdapter.
func (a *LaunchStreamAdapter) Name() string { return "launch-stream" }

// Fetch implements SourceAdapter: it drains everything buffered since the
// previous cycle. The stream itself never blocks a discovery cycle.
func (a *LaunchStreamAdapter) Fetch(_ context.Context) ([]domain.Candidate, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.buf
	a.buf = nil
	return out, nil
}

// readLoop keeps one subscription alive, reconnecting with exponential
// backoff capped at launchMaxRetryGap.
func (a *LaunchStreamAdapter) readLoop(ctx context.Context) {
	delay := a.retryDelay
	for ctx.Err() == nil {
		if err := a.consume(ctx); err != nil && ctx.Err() == nil {
			a.logger.Printf("[launch-ws] stream error: %v, reconnecting in %v", err, delay)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		if delay *= 2; delay > launchMaxRetryGap {
			delay = launchMaxRetryGap
		}
	}
}

// consume runs one connection until it fails or the context ends.
func (a *LaunchStreamAdapter) consume(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, a.endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	a.logger.Printf("[launch-ws] connected to %s", a.endpoint)

	// Unblock ReadMessage on shutdown. The watcher must not outlive this
	// connection: it exits through done when the read loop returns, so a
	// reconnecting stream does not accumulate one watcher per dial.
	done := make(chan struct{})
	var watch sync.WaitGroup
	watch.Add(1)
	go func() {
		defer watch.Done()
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer func() {
		close(done)
		watch.Wait()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var ev launchEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			a.logger.Printf("[launch-ws] bad message: %v", err)
			continue
		}
		if !validMint(ev.Mint) {
			continue
		}
		a.push(ev)
	}
}

// push buffers one launch event as a candidate, dropping the oldest entry
// when the buffer is full.
func (a *LaunchStreamAdapter) push(ev launchEvent) {
	now := a.now()
	var age int64
	if ev.CreatedAt > 0 {
		age = now.Unix() - ev.CreatedAt/1000
	}

	cand := domain.Candidate{
		Mint:   ev.Mint,
		Symbol: ev.Symbol,
		Tags:   domain.NewTagSet(domain.TagFreshLaunch, domain.TagLaunchpad),
		Snapshot: domain.MarketSnapshot{
			PriceUSD:     ev.PriceUsd,
			LiquidityUSD: ev.LiquidityUsd,
			AgeSeconds:   age,
			FetchedAt:    now,
		},
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.buf) >= launchBuffer {
		a.buf = a.buf[1:]
	}
	a.buf = append(a.buf, cand)
}

// validMint checks the mint decodes to a 32-byte Solana address.
func validMint(mint string) bool {
	raw, err := base58.Decode(mint)
	return err == nil && len(raw) == mintByteLen
}

var _ SourceAdapter = (*LaunchStreamAdapter)(nil)
