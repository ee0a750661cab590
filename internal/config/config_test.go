package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("WHAPI_API_URL", "")
	t.Setenv("SESSION_TIMEOUT_HOURS", "")
	cfg := Load()
	if cfg.Port != "8765" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.WhapiAPIURL != "https://gate.whapi.cloud" {
		t.Fatalf("expected default whapi url, got %s", cfg.WhapiAPIURL)
	}
	if cfg.SessionTimeout != 24*time.Hour {
		t.Fatalf("expected default session timeout, got %s", cfg.SessionTimeout)
	}
	if cfg.AllowMemoryStateOnly {
		t.Fatalf("expected memory state store disallowed by default")
	}
	if cfg.BackendTimeout != 60*time.Second {
		t.Fatalf("expected default backend timeout, got %s", cfg.BackendTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("WHAPI_API_TOKEN", "token-123")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("SESSION_TIMEOUT_HOURS", "48")
	t.Setenv("ALLOW_MEMORY_STATE_STORE", "true")
	t.Setenv("BACKEND_TIMEOUT", "30s")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected lowercased log level, got %s", cfg.LogLevel)
	}
	if cfg.WhapiAPIToken != "token-123" {
		t.Fatalf("expected token override, got %s", cfg.WhapiAPIToken)
	}
	if cfg.RedisAddr != "cache:6380" {
		t.Fatalf("expected redis override, got %s", cfg.RedisAddr)
	}
	if cfg.SessionTimeout != 48*time.Hour {
		t.Fatalf("expected session timeout override, got %s", cfg.SessionTimeout)
	}
	if !cfg.AllowMemoryStateOnly {
		t.Fatalf("expected memory state store allowed")
	}
	if cfg.BackendTimeout != 30*time.Second {
		t.Fatalf("expected backend timeout override, got %s", cfg.BackendTimeout)
	}
}
