// Package config loads runtime settings from .env files and RT_-prefixed
// environment variables.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/viper"
)

// Store backend selectors.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreSQLite = "sqlite"
)

// Config holds every runtime knob for the realtime core.
type Config struct {
	APIBaseURL string
	WSURL      string

	StoreBackend string
	RedisURL     string
	SQLitePath   string

	// FailOpen keeps the session when the validation endpoint is
	// unreachable; default is fail-closed.
	FailOpen      bool
	VerifyRetries int

	RejoinOnReconnect bool

	HTTPTimeout      time.Duration
	HandshakeTimeout time.Duration
}

// Load reads the optional .env file, then environment variables, then
// defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	v.SetDefault("RT_API_BASE_URL", "http://localhost:8080")
	v.SetDefault("RT_WS_URL", "ws://localhost:8080/ws")
	v.SetDefault("RT_STORE_BACKEND", StoreSQLite)
	v.SetDefault("RT_REDIS_URL", "redis://127.0.0.1:6379/0")
	v.SetDefault("RT_SQLITE_PATH", "session.db")
	v.SetDefault("RT_FAIL_OPEN", false)
	v.SetDefault("RT_VERIFY_RETRIES", 2)
	v.SetDefault("RT_REJOIN_ON_RECONNECT", true)
	v.SetDefault("RT_HTTP_TIMEOUT", "10s")
	v.SetDefault("RT_HANDSHAKE_TIMEOUT", "10s")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		slog.Debug("no .env file; using environment and defaults", "error", err)
	}

	httpTimeout, err := time.ParseDuration(v.GetString("RT_HTTP_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid RT_HTTP_TIMEOUT: %w", err)
	}
	handshakeTimeout, err := time.ParseDuration(v.GetString("RT_HANDSHAKE_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid RT_HANDSHAKE_TIMEOUT: %w", err)
	}

	cfg := &Config{
		APIBaseURL:        v.GetString("RT_API_BASE_URL"),
		WSURL:             v.GetString("RT_WS_URL"),
		StoreBackend:      v.GetString("RT_STORE_BACKEND"),
		RedisURL:          v.GetString("RT_REDIS_URL"),
		SQLitePath:        v.GetString("RT_SQLITE_PATH"),
		FailOpen:          v.GetBool("RT_FAIL_OPEN"),
		VerifyRetries:     v.GetInt("RT_VERIFY_RETRIES"),
		RejoinOnReconnect: v.GetBool("RT_REJOIN_ON_RECONNECT"),
		HTTPTimeout:       httpTimeout,
		HandshakeTimeout:  handshakeTimeout,
	}

	switch cfg.StoreBackend {
	case StoreMemory, StoreRedis, StoreSQLite:
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return cfg, nil
}
