package config

import (
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every tunable the server reads at startup. Values come
// from the environment, optionally seeded from a .env file.
type Config struct {
	ListenAddr    string
	SQLitePath    string
	CollectorAddr string
	JWTSecret     string

	QueueTTL          time.Duration
	QueueScanInterval time.Duration
}

// Load reads the optional .env file and resolves the configuration with
// defaults suitable for local development.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	return Config{
		ListenAddr:    getEnv("LISTEN_ADDR", ":8080"),
		SQLitePath:    getEnv("SQLITE_PATH", "./arcade.db"),
		CollectorAddr: getEnv("OTEL_COLLECTOR_ADDR", "otel-collector:4317"),
		JWTSecret:     getEnv("JWT_SECRET", "dev-secret-change-me"),

		QueueTTL:          getDuration("QUEUE_TTL", 2*time.Minute),
		QueueScanInterval: getDuration("QUEUE_SCAN_INTERVAL", 2*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}
	return d
}
