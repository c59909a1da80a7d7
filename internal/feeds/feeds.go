// Package feeds provides the candidate source adapters consumed by the
// discovery loop. Each adapter returns a finite batch of candidates per
// call; a failing adapter returns an error and the scanner isolates it
// from the rest of the cycle.
package feeds

import (
	"context"

	"solana-sniper/internal/domain"
)

// SourceAdapter surfaces candidate tokens from one external feed.
type SourceAdapter interface {
	// Name identifies the adapter in logs and metrics.
	Name() string

	// Fetch returns this cycle's candidates. It must respect the context
	// deadline and return an error rather than block past it.
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}
