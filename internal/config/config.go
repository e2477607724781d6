package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds the runtime settings read from the environment.
type Config struct {
	Port            string
	LogLevel        string
	GinMode         string
	RedisAddr       string
	CacheTTL        time.Duration
	MaxBodyBytes    int64
	MaxOptions      int
	ShutdownTimeout time.Duration
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      getEnv("PORT", "10000"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		GinMode:   getEnv("GIN_MODE", "release"),
		RedisAddr: os.Getenv("REDIS_ADDR"),
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ShutdownTimeout, err = durationEnv("SHUTDOWN_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxBodyBytes, err = int64Env("MAX_BODY_BYTES", 10<<20); err != nil {
		return nil, err
	}
	maxOptions, err := int64Env("MAX_OPTIONS", 16)
	if err != nil {
		return nil, err
	}
	cfg.MaxOptions = int(maxOptions)

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return nil, fmt.Errorf("config: invalid PORT %q", cfg.Port)
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + c.Port
}

// CacheEnabled reports whether a Redis address was configured.
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != ""
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, value)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("config: invalid %s %q", key, value)
	}
	return n, nil
}
