package domain

import "time"

// CycleSummary is published on the signal bus after every cycle.
type CycleSummary struct {
	CycleID    string    `json:"cycle_id"`
	Token      string    `json:"token"`
	Chart      string    `json:"chart,omitempty"`
	Actions    []string  `json:"actions"`
	Error      string    `json:"error,omitempty"`
	Skipped    bool      `json:"skipped,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// BotStatus is a summary of the bot's current operational state.
type BotStatus struct {
	Mode          string
	Address       string
	Token         string
	UptimeSeconds int64
	LastCycleAt   time.Time
}
