// Package config centralises environment-driven configuration so main stays lean.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures runtime configuration for the check-in gateway.
type Server struct {
	Addr          string
	PostgresURL   string
	RedisURL      string
	KafkaBrokers  []string
	JWTSigningKey string

	// Session behaviour. Fixed-duration sessions: TTL is set once at login and
	// only an explicit extend resets it.
	SessionTTL      time.Duration
	NetworkCooldown time.Duration
	TouchInterval   time.Duration
	WatchInterval   time.Duration

	// Bounded retries for the check-in transaction before surfacing a generic
	// failure to the caller.
	TxMaxRetries int

	ShutdownTimeout time.Duration
}

// FromEnv builds a Server config from environment variables, applying sensible
// defaults for local dev.
func FromEnv() Server {
	cfg := Server{
		Addr:            getEnv("TURNSTILE_ADDR", ":8080"),
		PostgresURL:     getEnv("POSTGRES_URL", ""),
		RedisURL:        getEnv("REDIS_URL", ""),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		SessionTTL:      getDurationEnv("SESSION_TTL", 30*time.Minute),
		NetworkCooldown: getDurationEnv("NETWORK_COOLDOWN", 30*time.Minute),
		TouchInterval:   getDurationEnv("TOUCH_INTERVAL", 60*time.Second),
		WatchInterval:   getDurationEnv("WATCH_INTERVAL", 60*time.Second),
		TxMaxRetries:    getIntEnv("TX_MAX_RETRIES", 3),
		ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		cfg.KafkaBrokers = splitAndTrim(brokers)
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
