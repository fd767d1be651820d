// Package handler provides HTTP handlers for the ops endpoints.
// The bot is headless; these endpoints exist for platform health probes
// and for checking what the poller and scheduler are up to.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/lvaldez/pitwall/internal/api/respond"
	"github.com/lvaldez/pitwall/internal/poller"
)

// HealthChecker verifies backing storage connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

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

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	db        HealthChecker
	poller    StatusReporter
	scheduler TimerCounter
	store     SessionCounter
	startedAt time.Time
}

// New creates a Handler with shared dependencies.
func New(db HealthChecker, p StatusReporter, scheduler TimerCounter, store SessionCounter) *Handler {
	return &Handler{
		db:        db,
		poller:    p,
		scheduler: scheduler,
		store:     store,
		startedAt: time.Now(),
	}
}

type statusResponse struct {
	poller.Status

	ArmedTimers       int    `json:"armed_timers"`
	ScheduledSessions int64  `json:"scheduled_sessions"`
	Uptime            string `json:"uptime"`
}

// Root serves service info at /.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"name":      "pitwall",
		"version":   "1.0.0",
		"status":    "running",
		"endpoints": []string{"/healthz", "/status", "/metrics"},
	})
}

// Healthz verifies database connectivity.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respond.WriteJSONObject(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "unhealthy",
			"database":  "disconnected",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	respond.WriteJSONObject(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"database":  "connected",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Status reports the last polling cycle, pending timers, and the number of
// sessions recorded in the idempotency table.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	recorded, err := h.store.CountScheduled(r.Context())
	if err != nil {
		respond.WriteError(w, http.StatusServiceUnavailable, "STORE_UNREACHABLE", "Could not count scheduled sessions")
		return
	}

	respond.WriteJSONObject(w, http.StatusOK, statusResponse{
		Status:            h.poller.Status(),
		ArmedTimers:       h.scheduler.ArmedCount(),
		ScheduledSessions: recorded,
		Uptime:            time.Since(h.startedAt).Round(time.Second).String(),
	})
}
