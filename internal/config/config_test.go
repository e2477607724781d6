package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "GIN_MODE", "REDIS_ADDR", "CACHE_TTL", "SHUTDOWN_TIMEOUT", "MAX_BODY_BYTES", "MAX_OPTIONS"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if cfg.Addr() != ":10000" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if cfg.CacheEnabled() {
		t.Fatal("expected cache to be disabled without REDIS_ADDR")
	}
	if cfg.CacheTTL != 10*time.Minute {
		t.Fatalf("unexpected cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.MaxBodyBytes != 10<<20 {
		t.Fatalf("unexpected max body bytes: %d", cfg.MaxBodyBytes)
	}
	if cfg.MaxOptions != 16 {
		t.Fatalf("unexpected max options: %d", cfg.MaxOptions)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("MAX_OPTIONS", "4")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected success, got error: %v", err)
	}
	if cfg.Addr() != ":8081" {
		t.Fatalf("unexpected addr: %s", cfg.Addr())
	}
	if !cfg.CacheEnabled() {
		t.Fatal("expected cache to be enabled")
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("unexpected cache ttl: %s", cfg.CacheTTL)
	}
	if cfg.MaxOptions != 4 {
		t.Fatalf("unexpected max options: %d", cfg.MaxOptions)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"PORT":           "http",
		"CACHE_TTL":      "soon",
		"MAX_BODY_BYTES": "-1",
		"MAX_OPTIONS":    "many",
	}

	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}
