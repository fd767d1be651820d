// Package poller drives the recurring check cycle: fetch the calendar,
// filter sessions through the idempotency store, arm notification timers,
// and record what was handled.
//
// Cycles are serialized by an in-flight guard. Arming timers and writing the
// store record are deliberately not transactional: a crash between the two
// re-schedules the session on the next cycle, trading duplicate messages for
// never losing one.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/lvaldez/pitwall/internal/calendar"
	"github.com/lvaldez/pitwall/internal/metrics"
)

// Store is the idempotency-record surface the poller needs.
type Store interface {
	IsScheduled(ctx context.Context, sessionID string) (bool, error)
	MarkScheduled(ctx context.Context, sessionID string) error
}

// Fetcher retrieves upcoming events for the configured category.
type Fetcher interface {
	FetchUpcoming(ctx context.Context) ([]calendar.Event, error)
}

// Scheduler arms notification timers for one session and reports how many
// it armed.
type Scheduler interface {
	ScheduleSession(eventName string, session calendar.Session) int
}

// Poller owns the cycle state machine and its periodic trigger.
type Poller struct {
	store     Store
	fetcher   Fetcher
	scheduler Scheduler
	interval  time.Duration
	sink      metrics.Sink
	logger    *slog.Logger

	clock    func() time.Time
	inFlight atomic.Bool

	mu      sync.Mutex
	runCtx  context.Context
	lastRun time.Time
	last    Result
}

// New creates a Poller. A nil sink disables metrics.
func New(store Store, fetcher Fetcher, scheduler Scheduler, interval time.Duration, sink metrics.Sink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	return &Poller{
		store:     store,
		fetcher:   fetcher,
		scheduler: scheduler,
		interval:  interval,
		sink:      sink,
		logger:    logger,
		clock:     time.Now,
	}
}

// RunCycle executes one check cycle. A trigger that arrives while a cycle is
// already running is rejected, keeping cycles strictly sequential.
func (p *Poller) RunCycle(ctx context.Context) Result {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.sink.CycleSkipped()
		p.logger.Warn("check cycle skipped, previous cycle still running")
		return Result{Skipped: true}
	}
	defer p.inFlight.Store(false)

	p.sink.CycleStarted()
	start := time.Now()
	var result Result

	p.logger.Info("Checking calendar for new sessions")

	events, fetchErr := p.fetcher.FetchUpcoming(ctx)
	if fetchErr != nil {
		// Soft failure: zero events this cycle, try again on the next trigger.
		p.logger.Error("calendar fetch failed", "error", fetchErr)
		result.FetchError = fetchErr.Error()
		events = nil
	}

	result.Events = len(events)
	for _, event := range events {
		eventName := event.DisplayName()
		for _, session := range event.Schedules {
			result.Sessions++

			if session.ID == "" {
				p.logger.Debug("session without id skipped", "event", eventName)
				continue
			}
			if !session.StartAt.After(p.clock()) {
				continue
			}

			scheduled, err := p.store.IsScheduled(ctx, session.ID)
			if err != nil {
				// Skip just this session; an unreadable store must not
				// abort the rest of the cycle.
				p.logger.Error("store check failed, skipping session",
					"session", session.ID, "error", err)
				continue
			}
			if scheduled {
				continue
			}

			p.logger.Info("New session found, scheduling notifications",
				"session", session.ID, "name", session.DisplayName(), "event", eventName)
			result.TimersArmed += p.scheduler.ScheduleSession(eventName, session)

			if err := p.store.MarkScheduled(ctx, session.ID); err != nil {
				// Timers are already armed; without the record the session
				// will be re-scheduled next cycle and may notify twice.
				p.logger.Error("failed to record scheduled session",
					"session", session.ID, "error", err)
			}
			result.NewSessions++
		}
	}

	result.Duration = time.Since(start)
	p.sink.CycleCompleted(result.Duration, result.NewSessions, fetchErr)

	switch {
	case fetchErr != nil:
		p.logger.Info("Check cycle ended without data", "summary", result.Summary())
	case result.NewSessions > 0:
		p.logger.Info("Check cycle complete", "summary", result.Summary())
	default:
		p.logger.Info("No new sessions to schedule", "summary", result.Summary())
	}

	p.mu.Lock()
	p.lastRun = start
	p.last = result
	p.mu.Unlock()

	return result
}

// Run executes the startup cycle, then re-runs on the configured interval.
// Blocks until ctx is cancelled. Intended to be called with `go`.
func (p *Poller) Run(ctx context.Context) {
	p.mu.Lock()
	p.runCtx = ctx
	p.mu.Unlock()

	p.RunCycle(ctx)

	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.RunCycle(ctx)
	}); err != nil {
		p.logger.Error("failed to register periodic check", "interval", p.interval, "error", err)
		return
	}
	c.Start()
	p.logger.Info("Periodic calendar check started", "interval", p.interval)

	<-ctx.Done()
	<-c.Stop().Done()
	p.logger.Info("Periodic calendar check stopped")
}

// TriggerNow runs one on-demand cycle with the context Run was started
// with. Used by the /start command; a no-op before Run or after shutdown.
func (p *Poller) TriggerNow() {
	p.mu.Lock()
	ctx := p.runCtx
	p.mu.Unlock()

	if ctx == nil || ctx.Err() != nil {
		p.logger.Warn("on-demand check ignored, poller not running")
		return
	}
	p.logger.Info("On-demand check triggered")
	p.RunCycle(ctx)
}

// Status reports the most recent cycle for the ops endpoints.
func (p *Poller) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Status{
		LastRun:  p.lastRun,
		InFlight: p.inFlight.Load(),
	}
	if !p.lastRun.IsZero() {
		s.LastSummary = p.last.Summary()
	}
	return s
}
