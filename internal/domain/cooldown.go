package domain

import "time"

// CooldownEntry marks "do not re-enter before T" for one token. One entry
// per mint, overwritten on every full close. Expired entries are harmless
// if retained; only the time check matters.
type CooldownEntry struct {
	Mint          string
	ExitedAt      time.Time
	WasProfitable bool
}
