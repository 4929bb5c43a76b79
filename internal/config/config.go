// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds every tunable the broker reads from the environment.
// All values have working defaults so a bare `go run` brings up a usable server.
type Config struct {
	// Server
	Port           string
	LogLevel       string
	AllowedOrigins []string

	// Matchmaking
	BetTolerance float64 // fraction of the smaller bet two entries may differ by

	// Settlement
	CommissionRate float64 // platform cut of the total pot on a betted win

	// Room lifecycle
	RoomRetention time.Duration // how long an untouched room is kept
	ReapInterval  time.Duration // how often the cleanup sweep runs
	DiagInterval  time.Duration // how often live gauges are logged
	StartDelay    time.Duration // pause between seat fill and game_start broadcast

	// Settlement ledger (optional; empty addr disables it)
	RedisAddr  string
	RedisDB    int
	LedgerList string
}

// Load reads the environment and returns a fully-populated Config.
// Call after godotenv has had a chance to load a .env file.
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGINS", "*")),
		BetTolerance:   getEnvFloat("BET_TOLERANCE", 0.10),
		CommissionRate: getEnvFloat("COMMISSION_RATE", 0.10),
		RoomRetention:  getEnvDuration("ROOM_RETENTION", time.Hour),
		ReapInterval:   getEnvDuration("REAP_INTERVAL", time.Hour),
		DiagInterval:   getEnvDuration("DIAG_INTERVAL", time.Minute),
		StartDelay:     getEnvDuration("START_DELAY", 3*time.Second),
		RedisAddr:      getEnv("REDIS_ADDR", ""),
		RedisDB:        getEnvInt("REDIS_DB", 0),
		LedgerList:     getEnv("LEDGER_LIST", "arena_settlements"),
	}
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt parses an environment variable as an integer, else returns the default.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

// getEnvFloat parses an environment variable as a float, else returns the default.
func getEnvFloat(key string, def float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return v
}

// getEnvDuration parses an environment variable as a time.Duration, else returns the default.
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

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
