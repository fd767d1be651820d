package maintenance

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lvaldez/pitwall/internal/poller"
)

type fakeStatus struct{}

func (fakeStatus) Status() poller.Status { return poller.Status{} }

type fakeTimers struct{}

func (fakeTimers) ArmedCount() int { return 3 }

type fakeCounter struct{ calls atomic.Int64 }

func (f *fakeCounter) CountScheduled(ctx context.Context) (int64, error) {
	f.calls.Add(1)
	return 7, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStart_HeartbeatTicksAndStops(t *testing.T) {
	counter := &fakeCounter{}
	src := Sources{Poller: fakeStatus{}, Scheduler: fakeTimers{}, Store: counter}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Start(ctx, src, Config{HeartbeatInterval: 20 * time.Millisecond}, quietLogger())
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for counter.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if counter.calls.Load() == 0 {
		t.Fatal("heartbeat never ran")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop on context cancellation")
	}
}

func TestStart_ZeroIntervalDisablesHeartbeat(t *testing.T) {
	counter := &fakeCounter{}
	src := Sources{Poller: fakeStatus{}, Scheduler: fakeTimers{}, Store: counter}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Start(ctx, src, Config{}, quietLogger())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not stop on context cancellation")
	}

	if counter.calls.Load() != 0 {
		t.Errorf("heartbeat should be disabled, ran %d times", counter.calls.Load())
	}
}
