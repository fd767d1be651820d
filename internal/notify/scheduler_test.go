package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lvaldez/pitwall/internal/calendar"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingNotifier captures sent messages and signals each delivery on a
// channel so tests can wait for timer fires without sleeping.
type recordingNotifier struct {
	mu   sync.Mutex
	msgs []string
	ch   chan string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{ch: make(chan string, 8)}
}

func (n *recordingNotifier) Send(ctx context.Context, text string) error {
	n.mu.Lock()
	n.msgs = append(n.msgs, text)
	n.mu.Unlock()
	n.ch <- text
	return nil
}

type failingNotifier struct {
	calls int32
	ch    chan struct{}
}

func (n *failingNotifier) Send(ctx context.Context, text string) error {
	atomic.AddInt32(&n.calls, 1)
	n.ch <- struct{}{}
	return errors.New("telegram unavailable")
}

func TestScheduleSession_WindowArithmetic(t *testing.T) {
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		startIn   time.Duration
		wantArmed int
	}{
		{"well before lead window", 20 * time.Hour, 2},
		{"inside lead window", 5 * time.Hour, 1},
		{"exactly at lead boundary", 8 * time.Hour, 1},
		{"starts exactly now", 0, 0},
		{"already started", -time.Hour, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sc := NewScheduler(newRecordingNotifier(), 8, "UTC", nil, quietLogger())
			sc.clock = func() time.Time { return fixed }
			t.Cleanup(sc.StopAll)

			session := calendar.Session{ID: "s1", Name: "Practice 1", StartAt: fixed.Add(tc.startIn)}

			if preview := sc.WouldArm(session); preview != tc.wantArmed {
				t.Errorf("WouldArm: expected %d, got %d", tc.wantArmed, preview)
			}

			got := sc.ScheduleSession("GP Test", session)
			if got != tc.wantArmed {
				t.Errorf("armed: expected %d, got %d", tc.wantArmed, got)
			}
			if sc.ArmedCount() != tc.wantArmed {
				t.Errorf("ArmedCount: expected %d, got %d", tc.wantArmed, sc.ArmedCount())
			}
		})
	}
}

func TestLeadTimerFiresAndDelivers(t *testing.T) {
	n := newRecordingNotifier()
	sc := NewScheduler(n, 8, "UTC", nil, quietLogger())
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	sc.clock = func() time.Time { return fixed }
	t.Cleanup(sc.StopAll)

	// Lead fire-time lands 50ms after the injected now; the start timer
	// stays pending for hours and is stopped by cleanup.
	startAt := fixed.Add(8*time.Hour + 50*time.Millisecond)
	armed := sc.ScheduleSession("GP Test", calendar.Session{ID: "s1", Name: "Qualifying", StartAt: startAt})
	if armed != 2 {
		t.Fatalf("expected 2 timers armed, got %d", armed)
	}

	select {
	case msg := <-n.ch:
		want := "🏎️ *¡Atención!* La sesión **Qualifying** de **GP Test** comienza en 8 horas (a las 18:00 hs del 01/06)."
		if msg != want {
			t.Errorf("lead message:\n got: %q\nwant: %q", msg, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("lead timer did not fire")
	}

	if sc.ArmedCount() != 1 {
		t.Errorf("expected only the start timer pending, ArmedCount=%d", sc.ArmedCount())
	}
}

func TestStartTimerFiresAndDelivers(t *testing.T) {
	n := newRecordingNotifier()
	sc := NewScheduler(n, 8, "UTC", nil, quietLogger())
	t.Cleanup(sc.StopAll)

	// Discovered inside the lead window: only the start timer arms.
	startAt := time.Now().Add(50 * time.Millisecond)
	armed := sc.ScheduleSession("Gran Premio de España", calendar.Session{ID: "s2", Name: "Carrera", StartAt: startAt})
	if armed != 1 {
		t.Fatalf("expected 1 timer armed, got %d", armed)
	}

	select {
	case msg := <-n.ch:
		want := "🟢 *¡Arrancó!* La sesión **Carrera** de **Gran Premio de España** ha comenzado."
		if msg != want {
			t.Errorf("start message:\n got: %q\nwant: %q", msg, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("start timer did not fire")
	}

	if sc.ArmedCount() != 0 {
		t.Errorf("fired timer should leave the registry, ArmedCount=%d", sc.ArmedCount())
	}
}

func TestSendFailureIsNotRetried(t *testing.T) {
	n := &failingNotifier{ch: make(chan struct{}, 2)}
	sc := NewScheduler(n, 8, "UTC", nil, quietLogger())
	t.Cleanup(sc.StopAll)

	sc.ScheduleSession("GP Test", calendar.Session{
		ID: "s3", Name: "Sprint", StartAt: time.Now().Add(30 * time.Millisecond),
	})

	select {
	case <-n.ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	// Give a hypothetical retry time to show up.
	time.Sleep(150 * time.Millisecond)
	if got := atomic.LoadInt32(&n.calls); got != 1 {
		t.Errorf("expected exactly 1 delivery attempt, got %d", got)
	}
	if sc.ArmedCount() != 0 {
		t.Errorf("failed delivery should still clear the timer, ArmedCount=%d", sc.ArmedCount())
	}
}

func TestRearmSameSessionReplacesTimers(t *testing.T) {
	sc := NewScheduler(newRecordingNotifier(), 8, "UTC", nil, quietLogger())
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	sc.clock = func() time.Time { return fixed }
	t.Cleanup(sc.StopAll)

	session := calendar.Session{ID: "s4", Name: "Practice 2", StartAt: fixed.Add(20 * time.Hour)}
	sc.ScheduleSession("GP Test", session)
	sc.ScheduleSession("GP Test", session)

	if sc.ArmedCount() != 2 {
		t.Errorf("re-arming the same session must replace, not accumulate: ArmedCount=%d", sc.ArmedCount())
	}
}

func TestStopAll(t *testing.T) {
	sc := NewScheduler(newRecordingNotifier(), 8, "UTC", nil, quietLogger())
	fixed := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	sc.clock = func() time.Time { return fixed }

	sc.ScheduleSession("GP Test", calendar.Session{ID: "s5", Name: "Carrera", StartAt: fixed.Add(20 * time.Hour)})
	if sc.ArmedCount() != 2 {
		t.Fatalf("expected 2 armed, got %d", sc.ArmedCount())
	}

	sc.StopAll()
	if sc.ArmedCount() != 0 {
		t.Errorf("StopAll should clear the registry, ArmedCount=%d", sc.ArmedCount())
	}
}

func TestSessionNameFallback(t *testing.T) {
	n := newRecordingNotifier()
	sc := NewScheduler(n, 8, "UTC", nil, quietLogger())
	t.Cleanup(sc.StopAll)

	sc.ScheduleSession("GP Test", calendar.Session{
		ID: "s6", StartAt: time.Now().Add(30 * time.Millisecond),
	})

	select {
	case msg := <-n.ch:
		want := "🟢 *¡Arrancó!* La sesión **Sesión** de **GP Test** ha comenzado."
		if msg != want {
			t.Errorf("fallback message:\n got: %q\nwant: %q", msg, want)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
}

// countingSink records sink calls for assertions.
type countingSink struct {
	mu     sync.Mutex
	armed  int
	sent   int
	failed int
	gauge  int
}

func (c *countingSink) CycleStarted()                                    {}
func (c *countingSink) CycleCompleted(d time.Duration, s int, err error) {}
func (c *countingSink) CycleSkipped()                                    {}

func (c *countingSink) TimersArmed(n int) {
	c.mu.Lock()
	c.armed += n
	c.mu.Unlock()
}

func (c *countingSink) ArmedTimersUpdate(n int) {
	c.mu.Lock()
	c.gauge = n
	c.mu.Unlock()
}

func (c *countingSink) NotificationSent() {
	c.mu.Lock()
	c.sent++
	c.mu.Unlock()
}

func (c *countingSink) NotificationFailed() {
	c.mu.Lock()
	c.failed++
	c.mu.Unlock()
}

func TestSchedulerRecordsMetrics(t *testing.T) {
	sink := &countingSink{}
	n := newRecordingNotifier()
	sc := NewScheduler(n, 8, "UTC", sink, quietLogger())
	t.Cleanup(sc.StopAll)

	sc.ScheduleSession("GP Test", calendar.Session{
		ID: "m1", Name: "Carrera", StartAt: time.Now().Add(40 * time.Millisecond),
	})

	// The sink records after delivery returns, so wait for the counter
	// rather than the notifier signal.
	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		done := sink.sent == 1
		sink.mu.Unlock()
		if done {
			break
		}
		select {
		case <-deadline:
			t.Fatal("NotificationSent was not recorded")
		case <-time.After(10 * time.Millisecond):
		}
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.armed != 1 {
		t.Errorf("TimersArmed total: expected 1, got %d", sink.armed)
	}
	if sink.failed != 0 {
		t.Errorf("NotificationFailed: expected 0, got %d", sink.failed)
	}
	if sink.gauge != 0 {
		t.Errorf("armed gauge after fire: expected 0, got %d", sink.gauge)
	}
}

func TestLeadMessageDisplayTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	startAt := time.Date(2026, 9, 5, 14, 0, 0, 0, time.UTC) // 11:00 in Buenos Aires
	got := leadMessage("Clasificación", "Gran Premio de Italia", 8, startAt, loc)
	want := "🏎️ *¡Atención!* La sesión **Clasificación** de **Gran Premio de Italia** comienza en 8 horas (a las 11:00 hs del 05/09)."
	if got != want {
		t.Errorf("lead message:\n got: %q\nwant: %q", got, want)
	}
}
