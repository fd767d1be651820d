// Package notify turns upcoming sessions into armed one-shot timers and
// renders the channel messages they deliver.
//
// Two notifications exist per session: a lead warning some hours before the
// start, and a start alert at the start instant. Timers live only in memory;
// a restart loses whatever has not fired yet. The persistent record of what
// was scheduled belongs to internal/store, not here.
package notify

import (
	"context"
	"time"
)

// sendTimeout bounds a single delivery attempt once a timer fires.
const sendTimeout = 30 * time.Second

// Notifier delivers one rendered message to the configured channel.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Kind distinguishes the two notifications armed per session.
type Kind string

const (
	KindLead  Kind = "lead"
	KindStart Kind = "start"
)

// timerKey identifies one armed timer: at most one lead and one start timer
// exist per session.
type timerKey struct {
	SessionID string
	Kind      Kind
}
