package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "http://localhost:8080" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.StoreBackend != StoreSQLite {
		t.Errorf("StoreBackend = %q, want sqlite", cfg.StoreBackend)
	}
	if cfg.FailOpen {
		t.Error("default policy must be fail-closed")
	}
	if !cfg.RejoinOnReconnect {
		t.Error("rejoin-on-reconnect should default on")
	}
	if cfg.HTTPTimeout != 10*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RT_API_BASE_URL", "https://api.example.com")
	t.Setenv("RT_STORE_BACKEND", "redis")
	t.Setenv("RT_FAIL_OPEN", "true")
	t.Setenv("RT_HTTP_TIMEOUT", "3s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.StoreBackend != StoreRedis {
		t.Errorf("StoreBackend = %q", cfg.StoreBackend)
	}
	if !cfg.FailOpen {
		t.Error("FailOpen override lost")
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("RT_STORE_BACKEND", "s3")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown store backend")
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("RT_HTTP_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed duration")
	}
}
