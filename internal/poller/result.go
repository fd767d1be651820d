package poller

import (
	"fmt"
	"time"
)

// Result tracks counts and the outcome of one check cycle.
type Result struct {
	Events      int
	Sessions    int
	NewSessions int
	TimersArmed int
	Skipped     bool
	FetchError  string
	Duration    time.Duration
}

// Summary returns a human-readable summary of the cycle.
func (r Result) Summary() string {
	if r.Skipped {
		return "skipped: cycle already in flight"
	}
	if r.FetchError != "" {
		return fmt.Sprintf("fetch_failed=%q duration=%s", r.FetchError, r.Duration.Round(time.Millisecond))
	}
	return fmt.Sprintf(
		"events=%d sessions=%d new=%d timers=%d duration=%s",
		r.Events, r.Sessions, r.NewSessions, r.TimersArmed,
		r.Duration.Round(time.Millisecond),
	)
}

// Status is a point-in-time snapshot for the ops endpoints.
type Status struct {
	LastRun     time.Time `json:"last_run"`
	LastSummary string    `json:"last_summary"`
	InFlight    bool      `json:"cycle_in_flight"`
}
