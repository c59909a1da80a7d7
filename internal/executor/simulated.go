package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"solana-sniper/internal/pricing"
)

// Simulated fills orders at the looked-up market price with a configurable
// slippage haircut, without side effects. Used interchangeably with the
// live executor; the engine never knows which mode is active.
type Simulated struct {
	pricer      pricing.PriceLookup
	slippagePct float64 // applied against the trade on both sides
}

// NewSimulated creates a Simulated executor.
func NewSimulated(pricer pricing.PriceLookup, slippagePct float64) *Simulated {
	return &Simulated{pricer: pricer, slippagePct: slippagePct}
}

// Buy fills at market price plus slippage.
func (s *Simulated) Buy(ctx context.Context, mint string, sizeSOL float64) (*Fill, error) {
	return s.fill(ctx, mint, SideBuy, sizeSOL)
}

// Sell fills at market price minus slippage.
func (s *Simulated) Sell(ctx context.Context, mint string, sizeSOL float64) (*Fill, error) {
	return s.fill(ctx, mint, SideSell, sizeSOL)
}

func (s *Simulated) fill(ctx context.Context, mint, side string, sizeSOL float64) (*Fill, error) {
	if sizeSOL <= 0 {
		return nil, fmt.Errorf("%w: non-positive size %f", ErrExecutionFailed, sizeSOL)
	}

	price, ok, err := s.pricer.Price(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("%w: price lookup: %v", ErrExecutionFailed, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: no price for %s", ErrExecutionFailed, mint)
	}

	if side == SideBuy {
		price *= 1 + s.slippagePct/100
	} else {
		price *= 1 - s.slippagePct/100
	}

	return &Fill{
		FillID:     uuid.NewString(),
		Mint:       mint,
		Side:       side,
		SizeSOL:    sizeSOL,
		Price:      price,
		ExecutedAt: time.Now(),
	}, nil
}

var _ Executor = (*Simulated)(nil)
