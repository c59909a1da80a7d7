package domain

import "time"

// SessionState is the singleton risk ledger for one trading session.
// PeakPnlSOL is monotonically non-decreasing. Halted is sticky: once set
// it is only cleared by an explicit operator resume, never automatically.
type SessionState struct {
	RealizedPnlSOL float64
	PeakPnlSOL     float64
	Halted         bool
	HaltReason     string
	StartedAt      time.Time
}

// Drawdown returns the current distance from the session peak, in SOL.
func (s *SessionState) Drawdown() float64 {
	return s.PeakPnlSOL - s.RealizedPnlSOL
}
