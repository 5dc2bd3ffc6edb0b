package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Backend endpoints
	APIBaseURL string
	StreamURL  string

	// Transport reconnect policy
	BackoffBase          time.Duration
	BackoffMax           time.Duration
	MaxReconnectAttempts int

	// Polling fallback
	PollInterval time.Duration
	PollGrace    time.Duration

	// Engine
	MaxEvents      int
	ReconcileDelay time.Duration

	// Elapsed-time projector
	ProjectorTick time.Duration

	// Optional sport catalog override (YAML)
	SportCatalogPath string

	// Optional on-disk event journal (debugging aid)
	JournalPath string

	// Telemetry
	LogLevel string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL: envStr("LIVESYNC_API_URL", "http://localhost:8080/api"),
		StreamURL:  envStr("LIVESYNC_WS_URL", "ws://localhost:8080/ws"),

		BackoffBase:          envDur("LIVESYNC_BACKOFF_BASE", time.Second),
		BackoffMax:           envDur("LIVESYNC_BACKOFF_MAX", 30*time.Second),
		MaxReconnectAttempts: envInt("LIVESYNC_MAX_RECONNECT_ATTEMPTS", 5),

		// Polling doubles the update stream when racing the socket, so the
		// interval is deliberately coarse.
		PollInterval: envDur("LIVESYNC_POLL_INTERVAL", 30*time.Second),
		PollGrace:    envDur("LIVESYNC_POLL_GRACE", 5*time.Second),

		MaxEvents:      envInt("LIVESYNC_MAX_EVENTS", 100),
		ReconcileDelay: envDur("LIVESYNC_RECONCILE_DELAY", 10*time.Second),

		ProjectorTick: envDur("LIVESYNC_PROJECTOR_TICK", 15*time.Second),

		SportCatalogPath: envStr("LIVESYNC_SPORT_CATALOG", ""),
		JournalPath:      envStr("LIVESYNC_JOURNAL_PATH", ""),

		LogLevel: envStr("LOG_LEVEL", "info"),
	}
}

func envStr(key, fallback string) string {
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

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
