// Package metrics records operational counters for polling cycles and
// notification delivery.
package metrics

import "time"

// Sink is the recording interface handed to the poller and scheduler.
// All methods are fire-and-forget: implementations must not block and must
// not propagate errors.
type Sink interface {
	// Polling cycle metrics
	CycleStarted()
	CycleCompleted(duration time.Duration, scheduled int, err error)
	CycleSkipped()

	// Timer and delivery metrics
	TimersArmed(n int)
	ArmedTimersUpdate(n int)
	NotificationSent()
	NotificationFailed()
}
