// Package calendar fetches upcoming race weekends from the remote
// race-calendar API and exposes them as typed events.
//
// The API answers GET requests with {"races": [...]} filtered by an epoch-
// millisecond minDate/maxDate window. Timestamps on the wire are epoch
// milliseconds too. Category filtering happens client-side.
package calendar

import (
	"encoding/json"
	"time"
)

// Event is one race weekend grouping a set of timed sessions.
type Event struct {
	CategoryID   string    `json:"categoryId"`
	CompleteName string    `json:"completeName"`
	Schedules    []Session `json:"schedules"`
}

// Session is a single timed sub-event (practice, qualifying, race).
// ID is stable across polls and globally unique.
type Session struct {
	ID      string
	Name    string
	StartAt time.Time
}

// sessionWire mirrors Session with startAt in its raw wire form. The API
// sends epoch-millisecond numbers; some historical payloads carry RFC 3339
// strings instead, so both are accepted.
type sessionWire struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	StartAt json.RawMessage `json:"startAt"`
}

// UnmarshalJSON decodes the wire format, converting startAt from epoch
// milliseconds or an RFC 3339 string. A missing startAt lands on the epoch
// and is filtered out downstream as already started.
func (s *Session) UnmarshalJSON(data []byte) error {
	var w sessionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.ID = w.ID
	s.Name = w.Name
	s.StartAt = time.UnixMilli(0).UTC()

	if len(w.StartAt) == 0 || string(w.StartAt) == "null" {
		return nil
	}
	var millis int64
	if err := json.Unmarshal(w.StartAt, &millis); err == nil {
		s.StartAt = time.UnixMilli(millis).UTC()
		return nil
	}
	var stamp time.Time
	if err := json.Unmarshal(w.StartAt, &stamp); err != nil {
		return err
	}
	s.StartAt = stamp.UTC()
	return nil
}

// DisplayName returns the event name with a fallback for incomplete
// upstream records.
func (e Event) DisplayName() string {
	if e.CompleteName == "" {
		return "Evento F1"
	}
	return e.CompleteName
}

// DisplayName returns the session name with a fallback for incomplete
// upstream records.
func (s Session) DisplayName() string {
	if s.Name == "" {
		return "Sesión"
	}
	return s.Name
}
