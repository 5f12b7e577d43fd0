// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Verification VerificationConfig `koanf:"verification"`
	Challenge    ChallengeConfig    `koanf:"challenge"`
	Store        StoreConfig        `koanf:"store"`
	Audit        AuditConfig        `koanf:"audit"`
	Biometric    BiometricConfig    `koanf:"biometric"`
	Security     SecurityConfig     `koanf:"security"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 8484)
//   - HTTP_HOST: Listen host (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Request timeout (default: 30s)
//   - ENVIRONMENT: development or production
type ServerConfig struct {
	Host        string        `koanf:"host" validate:"required"`
	Port        int           `koanf:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=1s"`
	Environment string        `koanf:"environment" validate:"oneof=development production"`
}

// VerificationConfig holds session manager settings.
//
// The verification threshold is the cumulative challenge score at which a
// session transitions to VERIFIED. Session TTL bounds how long an
// in-progress session is retained before cleanup reclaims it.
type VerificationConfig struct {
	Threshold  int           `koanf:"threshold" validate:"min=1,max=1000"`
	SessionTTL time.Duration `koanf:"session_ttl" validate:"min=1m"`
}

// ChallengeConfig holds challenge lifecycle settings.
//
// MaxPending bounds the number of live challenges held in memory; the
// oldest abandoned challenges are evicted once the bound is reached.
type ChallengeConfig struct {
	MaxPending      int           `koanf:"max_pending" validate:"min=16"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" validate:"min=1s"`
}

// StoreConfig selects the persistence backend for challenges and sessions.
//
// Environment Variables:
//   - STORE_BACKEND: memory or badger (default: memory)
//   - STORE_PATH: BadgerDB directory (default: /data/trustgate)
type StoreConfig struct {
	Backend string `koanf:"backend" validate:"oneof=memory badger"`
	Path    string `koanf:"path"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Enabled       bool          `koanf:"enabled"`
	Backend       string        `koanf:"backend" validate:"oneof=memory duckdb"`
	Path          string        `koanf:"path"`
	BufferSize    int           `koanf:"buffer_size" validate:"min=1"`
	RetentionDays int           `koanf:"retention_days" validate:"min=1"`
	FlushInterval time.Duration `koanf:"flush_interval" validate:"min=1s"`
}

// BiometricConfig holds the external biometric verifier client settings.
// When disabled, biometric challenge responses are accepted on the
// non-empty-response heuristic alone.
type BiometricConfig struct {
	Enabled     bool          `koanf:"enabled"`
	URL         string        `koanf:"url" validate:"omitempty,http_url"`
	APIKey      string        `koanf:"api_key"`
	Timeout     time.Duration `koanf:"timeout" validate:"min=1s"`
	RateLimit   float64       `koanf:"rate_limit" validate:"min=0"`
	RateBurst   int           `koanf:"rate_burst" validate:"min=0"`
	MaxFailures uint32        `koanf:"max_failures" validate:"min=1"`
	BreakerOpen time.Duration `koanf:"breaker_open" validate:"min=1s"`
}

// SecurityConfig holds API rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"min=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"min=1s"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal panic disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks that the configuration is complete and consistent.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid configuration: field %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Cross-field rules validator tags cannot express.
	if c.Store.Backend == "badger" && c.Store.Path == "" {
		return fmt.Errorf("STORE_PATH is required when STORE_BACKEND=badger")
	}
	if c.Audit.Enabled && c.Audit.Backend == "duckdb" && c.Audit.Path == "" {
		return fmt.Errorf("AUDIT_PATH is required when AUDIT_BACKEND=duckdb")
	}
	if c.Biometric.Enabled && c.Biometric.URL == "" {
		return fmt.Errorf("BIOMETRIC_URL is required when BIOMETRIC_ENABLED=true")
	}

	return nil
}
