package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	corslib "github.com/rs/cors"

	"github.com/lvaldez/pitwall/internal/api/handler"
	"github.com/lvaldez/pitwall/internal/config"
)

// NewRouter creates and configures the Chi router with all middleware and
// routes. The gatherer may be nil when metrics are disabled.
func NewRouter(db handler.HealthChecker, p handler.StatusReporter, scheduler handler.TimerCounter,
	store handler.SessionCounter, gatherer prometheus.Gatherer, cfg *config.Config, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// --- Middleware stack ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(timing)
	r.Use(middleware.Compress(5)) // gzip

	// CORS
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Content-Type"},
		ExposedHeaders:   []string{"X-Process-Time"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	// --- Handler dependencies ---
	h := handler.New(db, p, scheduler, store)

	// --- Routes ---
	r.Get("/", h.Root)
	r.Get("/healthz", h.Healthz)
	r.Get("/status", h.Status)

	if cfg.MetricsEnabled && gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// requestLogger logs each request at debug level. Health probes hit these
// endpoints every few seconds, so anything louder drowns the real logs.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start).Round(time.Millisecond).String(),
			)
		})
	}
}

// timing adds an X-Process-Time header to all responses. The header has to
// land before the first write, so the writer is wrapped rather than the
// header set after the handler returns.
func timing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(&timedWriter{ResponseWriter: w, start: time.Now()}, r)
	})
}

type timedWriter struct {
	http.ResponseWriter
	start time.Time
	wrote bool
}

func (t *timedWriter) WriteHeader(status int) {
	if !t.wrote {
		t.wrote = true
		elapsed := float64(time.Since(t.start).Microseconds()) / 1000.0
		t.Header().Set("X-Process-Time", fmt.Sprintf("%.2fms", elapsed))
	}
	t.ResponseWriter.WriteHeader(status)
}

func (t *timedWriter) Write(b []byte) (int, error) {
	if !t.wrote {
		t.WriteHeader(http.StatusOK)
	}
	return t.ResponseWriter.Write(b)
}
