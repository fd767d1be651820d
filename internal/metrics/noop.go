package metrics

import "time"

// NoopSink is a no-op implementation of Sink.
// Used when metrics are disabled to avoid nil checks.
type NoopSink struct{}

// NewNoopSink returns a no-op metrics sink.
func NewNoopSink() *NoopSink {
	return &NoopSink{}
}

func (n *NoopSink) CycleStarted()                                             {}
func (n *NoopSink) CycleCompleted(duration time.Duration, sched int, e error) {}
func (n *NoopSink) CycleSkipped()                                             {}
func (n *NoopSink) TimersArmed(count int)                                     {}
func (n *NoopSink) ArmedTimersUpdate(count int)                               {}
func (n *NoopSink) NotificationSent()                                         {}
func (n *NoopSink) NotificationFailed()                                       {}
