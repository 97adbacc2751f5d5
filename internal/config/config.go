// internal/config/config.go
package config

import (
	"os"
	"time"
)

// Config carries the environment-backed server settings. Values are read
// once at startup; godotenv autoload in main fills the environment from a
// local .env file when present.
type Config struct {
	// Addr is the listen address, built from PORT.
	Addr string
	// RedisAddr enables match-history publishing when non-empty.
	RedisAddr string
	// IdleTTL is how long an empty lobby may linger before the reaper
	// reclaims it.
	IdleTTL time.Duration
	// ReapInterval is how often the reaper sweeps.
	ReapInterval time.Duration
	// ResetDelay is the grace period between a match finishing and the
	// lobby returning to the waiting state.
	ResetDelay time.Duration
}

// FromEnv loads settings from the environment, applying defaults.
func FromEnv() Config {
	return Config{
		Addr:         ":" + getEnv("PORT", "8080"),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		IdleTTL:      getEnvDuration("LOBBY_IDLE_TTL", time.Hour),
		ReapInterval: getEnvDuration("LOBBY_REAP_INTERVAL", 10*time.Minute),
		ResetDelay:   getEnvDuration("MATCH_RESET_DELAY", 5*time.Second),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvDuration parses an environment variable as a time.Duration, else a
// default value.
func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
