// Command pitwall is the F1 session notification bot.
//
// Usage:
//
//	pitwall run
//	pitwall poll
//	pitwall schema
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/lvaldez/pitwall/internal/api"
	"github.com/lvaldez/pitwall/internal/calendar"
	"github.com/lvaldez/pitwall/internal/config"
	"github.com/lvaldez/pitwall/internal/db"
	"github.com/lvaldez/pitwall/internal/maintenance"
	"github.com/lvaldez/pitwall/internal/metrics"
	"github.com/lvaldez/pitwall/internal/notify"
	"github.com/lvaldez/pitwall/internal/poller"
	"github.com/lvaldez/pitwall/internal/store"
	"github.com/lvaldez/pitwall/internal/telegram"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "pitwall",
		Short: "F1 session notification bot",
	}

	root.AddCommand(runCmd())
	root.AddCommand(pollCmd())
	root.AddCommand(schemaCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the notification bot until signalled",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(runService)
		},
	}
}

func runService(ctx context.Context, cfg *config.Config, pool *db.Pool, st *store.Store) error {
	var (
		sink     metrics.Sink = metrics.NewNoopSink()
		gatherer prometheus.Gatherer
	)
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		sink = metrics.NewPrometheusSink(reg)
		gatherer = reg
	}

	bot, err := telegram.New(cfg.TelegramToken, cfg.ChannelID, logger)
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	fetcher := calendar.NewClient(cfg.APIBaseURL, cfg.CategoryID, cfg.WindowDays, cfg.FetchTimeout, logger)
	scheduler := notify.NewScheduler(bot, cfg.LeadHours, cfg.DisplayTimezone, sink, logger)
	p := poller.New(st, fetcher, scheduler, cfg.PollInterval, sink, logger)
	bot.SetOnDemandCheck(p.TriggerNow)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(pool, p, scheduler, st, gatherer, cfg, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Ops endpoints listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Ops server failed", "error", err)
			os.Exit(1)
		}
	}()

	go bot.Start(ctx)
	go p.Run(ctx)
	go maintenance.Start(ctx, maintenance.Sources{
		Poller:    p,
		Scheduler: scheduler,
		Store:     st,
	}, maintenance.DefaultConfig(), logger)

	logger.Info("Pitwall running",
		"channel", cfg.ChannelID,
		"category", cfg.CategoryID,
		"interval", cfg.PollInterval,
		"lead_hours", cfg.LeadHours,
		"window_days", cfg.WindowDays)

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	scheduler.StopAll()
	logger.Info("Bot stopped")
	return nil
}

// --------------------------------------------------------------------------
// poll command
// --------------------------------------------------------------------------

// dryRunStore reads real records but never writes them.
type dryRunStore struct{ *store.Store }

func (dryRunStore) MarkScheduled(ctx context.Context, sessionID string) error { return nil }

// previewScheduler counts what would be armed without arming anything.
type previewScheduler struct{ sc *notify.Scheduler }

func (p previewScheduler) ScheduleSession(eventName string, session calendar.Session) int {
	return p.sc.WouldArm(session)
}

func pollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "poll",
		Short: "Run one dry-run calendar check and exit",
		Long: "Fetches the calendar, reports which sessions would be scheduled, and exits.\n" +
			"Nothing is recorded or armed: a timer cannot outlive the process, and a\n" +
			"record without a timer would suppress the real notification later.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, cfg *config.Config, pool *db.Pool, st *store.Store) error {
				bot, err := telegram.New(cfg.TelegramToken, cfg.ChannelID, logger)
				if err != nil {
					return fmt.Errorf("create telegram bot: %w", err)
				}
				fetcher := calendar.NewClient(cfg.APIBaseURL, cfg.CategoryID, cfg.WindowDays, cfg.FetchTimeout, logger)
				scheduler := notify.NewScheduler(bot, cfg.LeadHours, cfg.DisplayTimezone, nil, logger)
				p := poller.New(dryRunStore{st}, fetcher, previewScheduler{scheduler}, cfg.PollInterval, nil, logger)

				logger.Info("Dry run: nothing will be recorded or armed")
				result := p.RunCycle(ctx)
				logger.Info("Check finished", "summary", result.Summary())
				if result.FetchError != "" {
					return fmt.Errorf("calendar fetch failed: %s", result.FetchError)
				}
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// schema command
// --------------------------------------------------------------------------

func schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Ensure the scheduled_sessions table exists and report its size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(func(ctx context.Context, cfg *config.Config, pool *db.Pool, st *store.Store) error {
				n, err := st.CountScheduled(ctx)
				if err != nil {
					return fmt.Errorf("count scheduled sessions: %w", err)
				}
				logger.Info("Schema ready", "table", config.ScheduledSessionsTable, "recorded_sessions", n)
				return nil
			})
		},
	}
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// signalContext returns a context cancelled on SIGINT or SIGTERM, so a
// terminal Ctrl-C and a container stop trigger the same graceful shutdown.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// withDeps handles config loading, DB connection, schema setup, and context
// cancellation. Any failure here is fatal to the command.
func withDeps(fn func(ctx context.Context, cfg *config.Config, pool *db.Pool, st *store.Store) error) error {
	ctx, cancel := signalContext()
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool.Pool)
	if err := st.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	return fn(ctx, cfg, pool, st)
}
