package usecase

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds the rate contract of the quote API and the queue's cache policy.
type Config struct {
	TTL               time.Duration // How long a fetched result is served from cache
	MaxCallsPerMinute int           // Provider calls allowed per minute window (0 = unlimited)
	MaxCallsPerDay    int           // Provider calls allowed per day window (0 = unlimited)
	MinuteWindow      time.Duration // Reset period of the per-minute counter
	DayWindow         time.Duration // Reset period of the per-day counter
	FetchTimeout      time.Duration // Per-call timeout for the provider (0 disables)
	MaxResults        int           // Distinct request keys whose last result is kept (0 = unbounded)
}

// DefaultConfig returns the limits of the Twelve Data free plan.
func DefaultConfig() Config {
	return Config{
		TTL:               5 * time.Minute,
		MaxCallsPerMinute: 8,
		MaxCallsPerDay:    800,
		MinuteWindow:      time.Minute,
		DayWindow:         24 * time.Hour,
		FetchTimeout:      30 * time.Second,
		MaxResults:        10000,
	}
}

// LoadConfig loads the queue configuration from environment variables,
// falling back to DefaultConfig for anything unset or malformed.
func LoadConfig() Config {
	cfg := DefaultConfig()
	if v, ok := envInt("QUOTE_CACHE_TTL_SEC"); ok && v > 0 {
		cfg.TTL = time.Duration(v) * time.Second
	}
	// 0以下はQuota上「無制限」になるため受け付けない
	if v, ok := envInt("QUOTE_MAX_CALLS_PER_MINUTE"); ok {
		cfg.MaxCallsPerMinute = positiveOrDefault("QUOTE_MAX_CALLS_PER_MINUTE", v, cfg.MaxCallsPerMinute)
	}
	if v, ok := envInt("QUOTE_MAX_CALLS_PER_DAY"); ok {
		cfg.MaxCallsPerDay = positiveOrDefault("QUOTE_MAX_CALLS_PER_DAY", v, cfg.MaxCallsPerDay)
	}
	if v, ok := envInt("QUOTE_FETCH_TIMEOUT_SEC"); ok && v >= 0 {
		cfg.FetchTimeout = time.Duration(v) * time.Second
	}
	if v, ok := envInt("QUOTE_MAX_RESULTS"); ok && v >= 0 {
		cfg.MaxResults = v
	}
	return cfg
}

func positiveOrDefault(key string, v, def int) int {
	if v > 0 {
		return v
	}
	slog.Warn("quota limit must be positive, using default", "env", key, "value", v, "default", def)
	return def
}

func envInt(key string) (int, bool) {
	s := os.Getenv(key)
	if s == "" {
		return 0, false
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return v, true
}
