// Package advisor defines the optional discretionary decision collaborator.
// Advice is consulted only after the mechanical entry rules have passed,
// and only ever adjusts sizing; it cannot veto or force an entry. The
// engine functions identically with no advisor wired.
package advisor

import (
	"context"

	"solana-sniper/internal/domain"
)

// Action is the fixed advice vocabulary.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
	ActionSkip Action = "SKIP"
)

// Request carries the candidate context for a sizing consultation.
type Request struct {
	Candidate       domain.Candidate
	ProposedSizeSOL float64
}

// Advice is the collaborator's response.
type Advice struct {
	Action     Action
	Confidence float64 // 0..1
	SizeSOL    float64 // suggested notional; 0 means no suggestion
}

// Advisor produces advisory decisions.
type Advisor interface {
	Advise(ctx context.Context, req Request) (Advice, error)
}

// Noop always returns SKIP with zero confidence.
type Noop struct{}

// Advise implements Advisor.
func (Noop) Advise(_ context.Context, _ Request) (Advice, error) {
	return Advice{Action: ActionSkip}, nil
}

// SizeFor resolves the final position size: the advised size when the
// advisor affirms the entry with a suggestion, the proposed size
// otherwise, always clamped to max.
func SizeFor(adv Advice, err error, proposed, max float64) float64 {
	size := proposed
	if err == nil && adv.Action == ActionBuy && adv.SizeSOL > 0 {
		size = adv.SizeSOL
	}
	if max > 0 && size > max {
		size = max
	}
	return size
}
