// Plume - Blogging and Social Posts Platform
// Copyright 2026 The Plume Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/plumehq/plume

// Package config loads application configuration from layered sources:
// built-in defaults, an optional YAML file, and environment variables
// prefixed with PLUME_. Later layers override earlier ones.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the server.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Media      MediaConfig      `koanf:"media"`
	Security   SecurityConfig   `koanf:"security"`
	Pagination PaginationConfig `koanf:"pagination"`
	Cache      CacheConfig      `koanf:"cache"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig selects and configures the content store.
type DatabaseConfig struct {
	// Driver is "memory" or "postgres".
	Driver string `koanf:"driver"`

	// URL is the postgres connection string. Ignored for memory.
	URL string `koanf:"url"`
}

// MediaConfig holds uploaded image storage settings.
type MediaConfig struct {
	Root          string `koanf:"root"`
	MaxUploadSize int64  `koanf:"max_upload_size"`
}

// SecurityConfig holds session, rate limit and CORS settings.
type SecurityConfig struct {
	// SessionStore is "memory" or "badger".
	SessionStore string `koanf:"session_store"`

	// SessionPath is the BadgerDB directory. Ignored for memory.
	SessionPath string `koanf:"session_path"`

	SessionTTL      time.Duration `koanf:"session_ttl"`
	SessionCleanup  time.Duration `koanf:"session_cleanup"`
	CookieSecure    bool          `koanf:"cookie_secure"`
	RateLimit       int           `koanf:"rate_limit"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	LoginRateLimit  int           `koanf:"login_rate_limit"`
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// PaginationConfig controls list page sizes.
type PaginationConfig struct {
	PageSize int `koanf:"page_size"`
}

// CacheConfig controls the follow feed cache.
type CacheConfig struct {
	FeedTTL time.Duration `koanf:"feed_ttl"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults applied. These are
// overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "memory",
			URL:    "",
		},
		Media: MediaConfig{
			Root:          "/data/media",
			MaxUploadSize: 10 << 20, // 10MB
		},
		Security: SecurityConfig{
			SessionStore:    "memory",
			SessionPath:     "/data/sessions",
			SessionTTL:      24 * time.Hour,
			SessionCleanup:  15 * time.Minute,
			CookieSecure:    true,
			RateLimit:       100,
			RateLimitWindow: time.Minute,
			LoginRateLimit:  10,
			CORSOrigins:     nil,
		},
		Pagination: PaginationConfig{
			PageSize: 10,
		},
		Cache: CacheConfig{
			FeedTTL: 20 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks the configuration for contradictions and missing
// required settings.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("database.driver must be memory or postgres, got %q", c.Database.Driver)
	}

	switch c.Security.SessionStore {
	case "memory":
	case "badger":
		if c.Security.SessionPath == "" {
			return fmt.Errorf("security.session_path is required for the badger session store")
		}
	default:
		return fmt.Errorf("security.session_store must be memory or badger, got %q", c.Security.SessionStore)
	}

	if c.Security.SessionTTL <= 0 {
		return fmt.Errorf("security.session_ttl must be positive, got %s", c.Security.SessionTTL)
	}
	if c.Pagination.PageSize < 1 {
		return fmt.Errorf("pagination.page_size must be at least 1, got %d", c.Pagination.PageSize)
	}
	if c.Cache.FeedTTL < 0 {
		return fmt.Errorf("cache.feed_ttl must not be negative, got %s", c.Cache.FeedTTL)
	}
	if c.Media.MaxUploadSize < 1 {
		return fmt.Errorf("media.max_upload_size must be positive, got %d", c.Media.MaxUploadSize)
	}

	return nil
}
