// Package config provides centralized configuration loaded from environment
// variables. Shared by every pitwall subcommand.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names — single source of truth, matches the schema in internal/store
// --------------------------------------------------------------------------

const ScheduledSessionsTable = "scheduled_sessions"

// DefaultAPIBaseURL is the public race-calendar endpoint used when API_URL
// is not set.
const DefaultAPIBaseURL = "https://backend-vuelta-rapida-production.up.railway.app/api/races"

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Telegram
	TelegramToken string
	ChannelID     string

	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Calendar API
	APIBaseURL   string
	WindowDays   int
	CategoryID   string
	FetchTimeout time.Duration

	// Scheduling
	LeadHours    int
	PollInterval time.Duration

	// Message rendering
	DisplayTimezone string

	// Ops HTTP server
	HTTPAddr         string
	CORSAllowOrigins []string
	MetricsEnabled   bool
}

// Load reads configuration from environment variables with sensible defaults.
// The three required keys are reported together so a misconfigured deploy
// fails with one complete message.
func Load() (*Config, error) {
	var missing []string
	for _, key := range []string{"TELEGRAM_TOKEN", "TELEGRAM_CHANNEL_ID", "DATABASE_URL"} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		ChannelID:     os.Getenv("TELEGRAM_CHANNEL_ID"),

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIBaseURL:   envOr("API_URL", DefaultAPIBaseURL),
		WindowDays:   envInt("API_DAYS_AHEAD", 90),
		CategoryID:   envOr("F1_CATEGORY_ID", "f1"),
		FetchTimeout: time.Duration(envPositiveInt("API_TIMEOUT_SECONDS", 15)) * time.Second,

		LeadHours:    envInt("NOTIFICATION_LEAD_HOURS", 8),
		PollInterval: time.Duration(envPositiveInt("CHECK_INTERVAL_HOURS", 4)) * time.Hour,

		DisplayTimezone: envOr("DISPLAY_TIMEZONE", "America/Argentina/Buenos_Aires"),

		HTTPAddr:         envOr("HTTP_ADDR", ":"+envOr("PORT", "8080")),
		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{"*"}),
		MetricsEnabled:   envBool("METRICS_ENABLED", true),
	}, nil
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// envPositiveInt reads an integer like envInt but treats zero and negative
// values as unset. Used for the duration knobs, where 0 would mean an
// unbounded fetch or a continuously firing poll trigger instead of the
// documented default.
func envPositiveInt(key string, fallback int) int {
	if n := envInt(key, fallback); n > 0 {
		return n
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
