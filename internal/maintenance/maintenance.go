// Package maintenance runs periodic background tasks as Go tickers.
// The bot is a persistent, long-running service anyway, so operational
// chores are driven from Go rather than an external scheduler.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/lvaldez/pitwall/internal/poller"
)

// StatusReporter exposes the outcome of the most recent polling cycle.
type StatusReporter interface {
	Status() poller.Status
}

// TimerCounter reports how many notification timers are pending.
type TimerCounter interface {
	ArmedCount() int
}

// SessionCounter reports how many sessions are recorded as scheduled.
type SessionCounter interface {
	CountScheduled(ctx context.Context) (int64, error)
}

// Sources holds the runtime state the maintenance tasks report on.
type Sources struct {
	Poller    StatusReporter
	Scheduler TimerCounter
	Store     SessionCounter
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	HeartbeatInterval time.Duration // Periodic state-of-the-world log line
}

// DefaultConfig returns sensible production defaults.
func DefaultConfig() Config {
	return Config{
		HeartbeatInterval: 1 * time.Hour,
	}
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, src Sources, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started", "heartbeat", cfg.HeartbeatInterval)

	if cfg.HeartbeatInterval > 0 {
		t := time.NewTicker(cfg.HeartbeatInterval)
		defer t.Stop()
		go runLoop(ctx, t.C, func() { heartbeat(ctx, src, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// heartbeat logs one line summarizing what the bot is holding in memory and
// in the store. Timers live only in this process, so after a restart this is
// the quickest way to see how much scheduling state survived.
func heartbeat(ctx context.Context, src Sources, logger *slog.Logger) {
	recorded, err := src.Store.CountScheduled(ctx)
	if err != nil {
		logger.Warn("Heartbeat: failed to count recorded sessions", "error", err)
		recorded = -1
	}

	status := src.Poller.Status()
	logger.Info("Heartbeat",
		"armed_timers", src.Scheduler.ArmedCount(),
		"recorded_sessions", recorded,
		"last_check", status.LastRun.Format(time.RFC3339),
		"last_summary", status.LastSummary)
}
