package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink implements Sink using the Prometheus client library.
// Registration errors are logged but never propagated; a collector that
// fails to register simply records into the void.
type PrometheusSink struct {
	cyclesTotal        prometheus.Counter
	cycleErrorsTotal   prometheus.Counter
	cyclesSkippedTotal prometheus.Counter
	cycleDuration      prometheus.Histogram
	sessionsScheduled  prometheus.Counter

	timersArmedTotal  prometheus.Counter
	armedTimers       prometheus.Gauge
	notificationsSent prometheus.Counter
	notificationsFail prometheus.Counter
}

// NewPrometheusSink creates a sink registered against reg.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		cyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_cycles_total",
			Help: "Total number of polling cycles run.",
		}),
		cycleErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_cycle_errors_total",
			Help: "Total number of cycles whose calendar fetch failed.",
		}),
		cyclesSkippedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_cycles_skipped_total",
			Help: "Total number of triggers rejected because a cycle was already running.",
		}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pitwall_cycle_duration_seconds",
			Help:    "Duration of each polling cycle in seconds.",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 30},
		}),
		sessionsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_sessions_scheduled_total",
			Help: "Total number of new sessions scheduled for notification.",
		}),
		timersArmedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_timers_armed_total",
			Help: "Total number of notification timers armed.",
		}),
		armedTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pitwall_armed_timers",
			Help: "Number of notification timers currently pending.",
		}),
		notificationsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_notifications_sent_total",
			Help: "Total number of notifications delivered to the channel.",
		}),
		notificationsFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pitwall_notifications_failed_total",
			Help: "Total number of notification deliveries that failed.",
		}),
	}

	register(reg, s.cyclesTotal, "pitwall_cycles_total")
	register(reg, s.cycleErrorsTotal, "pitwall_cycle_errors_total")
	register(reg, s.cyclesSkippedTotal, "pitwall_cycles_skipped_total")
	register(reg, s.cycleDuration, "pitwall_cycle_duration_seconds")
	register(reg, s.sessionsScheduled, "pitwall_sessions_scheduled_total")
	register(reg, s.timersArmedTotal, "pitwall_timers_armed_total")
	register(reg, s.armedTimers, "pitwall_armed_timers")
	register(reg, s.notificationsSent, "pitwall_notifications_sent_total")
	register(reg, s.notificationsFail, "pitwall_notifications_failed_total")
	return s
}

func register(reg prometheus.Registerer, c prometheus.Collector, name string) {
	if err := reg.Register(c); err != nil {
		slog.Warn("metrics registration failed", "collector", name, "error", err)
	}
}

func (s *PrometheusSink) CycleStarted() {
	s.cyclesTotal.Inc()
}

func (s *PrometheusSink) CycleCompleted(duration time.Duration, scheduled int, err error) {
	s.cycleDuration.Observe(duration.Seconds())
	s.sessionsScheduled.Add(float64(scheduled))
	if err != nil {
		s.cycleErrorsTotal.Inc()
	}
}

func (s *PrometheusSink) CycleSkipped() {
	s.cyclesSkippedTotal.Inc()
}

func (s *PrometheusSink) TimersArmed(n int) {
	s.timersArmedTotal.Add(float64(n))
}

func (s *PrometheusSink) ArmedTimersUpdate(n int) {
	s.armedTimers.Set(float64(n))
}

func (s *PrometheusSink) NotificationSent() {
	s.notificationsSent.Inc()
}

func (s *PrometheusSink) NotificationFailed() {
	s.notificationsFail.Inc()
}
