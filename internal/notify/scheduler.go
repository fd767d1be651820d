package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lvaldez/pitwall/internal/calendar"
	"github.com/lvaldez/pitwall/internal/metrics"
)

// Scheduler arms notification timers for sessions. Delivery is delegated to
// the injected Notifier when a timer fires; the Scheduler never retries and
// never blocks the caller on delivery.
type Scheduler struct {
	notifier  Notifier
	leadHours int
	loc       *time.Location
	sink      metrics.Sink
	logger    *slog.Logger

	clock func() time.Time

	mu     sync.Mutex
	timers map[timerKey]*time.Timer
}

// NewScheduler creates a Scheduler rendering clock times in displayTZ.
// An unknown timezone falls back to UTC. A nil sink disables metrics.
func NewScheduler(notifier Notifier, leadHours int, displayTZ string, sink metrics.Sink, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = metrics.NewNoopSink()
	}
	loc, err := time.LoadLocation(displayTZ)
	if err != nil {
		logger.Warn("invalid display timezone, falling back to UTC", "tz", displayTZ, "error", err)
		loc = time.UTC
	}
	return &Scheduler{
		notifier:  notifier,
		leadHours: leadHours,
		loc:       loc,
		sink:      sink,
		logger:    logger,
		clock:     time.Now,
		timers:    map[timerKey]*time.Timer{},
	}
}

// ScheduleSession arms the lead and start timers for one session and returns
// how many were armed. A fire-time already in the past arms nothing for that
// kind: a session discovered late simply gets fewer notifications.
func (sc *Scheduler) ScheduleSession(eventName string, session calendar.Session) int {
	now := sc.clock()
	sessionName := session.DisplayName()
	armed := 0

	leadAt := session.StartAt.Add(-time.Duration(sc.leadHours) * time.Hour)
	if leadAt.After(now) {
		msg := leadMessage(sessionName, eventName, sc.leadHours, session.StartAt, sc.loc)
		sc.arm(timerKey{session.ID, KindLead}, leadAt.Sub(now), msg)
		armed++
	}

	if session.StartAt.After(now) {
		msg := startMessage(sessionName, eventName)
		sc.arm(timerKey{session.ID, KindStart}, session.StartAt.Sub(now), msg)
		armed++
	}

	if armed > 0 {
		sc.sink.TimersArmed(armed)
		sc.logger.Info("session timers armed",
			"session", session.ID, "name", sessionName, "event", eventName,
			"timers", armed, "start_at", session.StartAt)
	}
	return armed
}

// WouldArm reports how many timers ScheduleSession would arm for the session
// right now, without arming anything. Used by the dry-run CLI path.
func (sc *Scheduler) WouldArm(session calendar.Session) int {
	now := sc.clock()
	n := 0
	if session.StartAt.Add(-time.Duration(sc.leadHours) * time.Hour).After(now) {
		n++
	}
	if session.StartAt.After(now) {
		n++
	}
	return n
}

// ArmedCount returns the number of timers currently pending.
func (sc *Scheduler) ArmedCount() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.timers)
}

// StopAll stops every pending timer. Called on shutdown; fired notifications
// are unaffected.
func (sc *Scheduler) StopAll() {
	sc.mu.Lock()
	for _, t := range sc.timers {
		t.Stop()
	}
	sc.timers = map[timerKey]*time.Timer{}
	sc.mu.Unlock()

	sc.sink.ArmedTimersUpdate(0)
}

func (sc *Scheduler) arm(key timerKey, fireIn time.Duration, message string) {
	sc.mu.Lock()
	// Re-arming the same key replaces the pending timer instead of leaking it.
	if t, ok := sc.timers[key]; ok {
		t.Stop()
	}
	sc.timers[key] = time.AfterFunc(fireIn, func() {
		sc.fire(key, message)
	})
	pending := len(sc.timers)
	sc.mu.Unlock()

	sc.sink.ArmedTimersUpdate(pending)
}

// fire delivers one message. Runs on the timer goroutine, detached from
// whatever cycle armed it, so it carries its own timeout.
func (sc *Scheduler) fire(key timerKey, message string) {
	sc.mu.Lock()
	delete(sc.timers, key)
	pending := len(sc.timers)
	sc.mu.Unlock()

	sc.sink.ArmedTimersUpdate(pending)

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	if err := sc.notifier.Send(ctx, message); err != nil {
		sc.sink.NotificationFailed()
		sc.logger.Error("notification send failed",
			"session", key.SessionID, "kind", string(key.Kind), "error", err)
		return
	}
	sc.sink.NotificationSent()
	sc.logger.Info("notification sent", "session", key.SessionID, "kind", string(key.Kind))
}
