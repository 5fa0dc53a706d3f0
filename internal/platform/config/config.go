// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (stores, gate, limiter) via constructors.
  - Zero Hidden State: No global variables are used to store config.
*/
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/animeids/internal/platform/constants"
)

// # Store Drivers

const (
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// # Configuration Schema

// Config holds all runtime configuration for the AnimeIDs API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// StoreDriver selects the backing key-value store implementation.
	StoreDriver string `env:"STORE_DRIVER" envDefault:"redis"`

	// Key-Value store (Redis). The auth namespace falls back to the dataset URL.
	DatasetRedisURL string `env:"DATASET_REDIS_URL"`
	AuthRedisURL    string `env:"AUTH_REDIS_URL"`

	// Relational store (PostgreSQL kv_entries table)
	DatabaseURL   string `env:"DATABASE_URL"`
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// In-process store seed file (memory driver only)
	DatasetSeedPath string `env:"DATASET_SEED_PATH"`

	// RequireAuth gates lookup and redirect endpoints behind a credential.
	RequireAuth bool `env:"REQUIRE_AUTH" envDefault:"false"`

	// Locally issued API keys
	APIKeyPrefix string `env:"API_KEY_PREFIX" envDefault:"ids_"`
	APIKeySalt   string `env:"API_KEY_SALT,required,notEmpty"`

	// Delegated session verifier
	SessionJWKSURL           string        `env:"SESSION_JWKS_URL"`
	SessionPublicKeyPath     string        `env:"SESSION_PUBLIC_KEY_PATH"`
	SessionIssuer            string        `env:"SESSION_ISSUER"`
	SessionAuthorizedParties []string      `env:"SESSION_AUTHORIZED_PARTIES" envSeparator:"," envDefault:"https://ids.moe,http://localhost:4321"`
	SessionCacheTTL          time.Duration `env:"SESSION_CACHE_TTL" envDefault:"5m"`

	// Per-minute tier allowances
	RateLimitFree       int `env:"RATE_LIMIT_FREE"       envDefault:"100"`
	RateLimitPro        int `env:"RATE_LIMIT_PRO"        envDefault:"1000"`
	RateLimitEnterprise int `env:"RATE_LIMIT_ENTERPRISE" envDefault:"10000"`

	// Outbound links
	HomepageURL       string `env:"HOMEPAGE_URL"        envDefault:"https://github.com/tajoumaru/ids.moe"`
	DatasetArchiveURL string `env:"DATASET_ARCHIVE_URL" envDefault:"https://raw.githubusercontent.com/nattadasu/animeApi/v3/database/"`

	// Cross-Origin Resource Sharing
	ExtraOrigins []string `env:"EXTRA_ORIGINS" envSeparator:","`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct and validates it.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.AuthRedisURL == "" {
		cfg.AuthRedisURL = cfg.DatasetRedisURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces the cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverRedis:
		if c.DatasetRedisURL == "" {
			return errors.New("config: DATASET_REDIS_URL is required for the redis store driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres store driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.SessionJWKSURL != "" && c.SessionPublicKeyPath != "" {
		return errors.New("config: SESSION_JWKS_URL and SESSION_PUBLIC_KEY_PATH are mutually exclusive")
	}

	if c.SessionCacheTTL <= 0 {
		c.SessionCacheTTL = constants.DefaultSessionCacheTTL
	}

	if c.RateLimitFree <= 0 || c.RateLimitPro <= 0 || c.RateLimitEnterprise <= 0 {
		return errors.New("config: tier rate limits must be positive")
	}

	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// SessionVerifierEnabled reports whether a delegated session key source is configured.
func (c *Config) SessionVerifierEnabled() bool {
	return c.SessionJWKSURL != "" || c.SessionPublicKeyPath != ""
}

// AllowedOrigins returns the origin suffixes accepted outside development.
func (c *Config) AllowedOrigins() []string {
	return append([]string{"ids.moe"}, c.ExtraOrigins...)
}
