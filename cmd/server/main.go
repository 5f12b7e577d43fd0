// TrustGate - Proof-of-Humanity Verification & Bot Detection Engine
// Copyright 2026 Trollz1004
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Trollz1004/trustgate

// Package main is the entry point for the TrustGate server.
//
// TrustGate is a proof-of-humanity verification engine for platforms where
// bot and AI-driven accounts erode user trust. It issues challenges of
// graded difficulty, accumulates per-user verification scores, scores text
// content for AI-generation likelihood, and assesses account telemetry for
// automation signals.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Stores: In-memory or BadgerDB-backed challenge and session stores
//  3. Audit: In-memory or DuckDB-backed audit trail with async writes
//  4. Verification manager: Challenge evaluation and session state machine
//  5. HTTP Server: REST API under a suture supervision tree
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables
//   - Config file (config.yaml)
//   - Built-in defaults
//
// Durable deployment with BadgerDB and DuckDB:
//
//	export STORE_BACKEND=badger
//	export STORE_PATH=/data/trustgate
//	export AUDIT_BACKEND=duckdb
//	export AUDIT_PATH=/data/trustgate/audit.db
//	export BIOMETRIC_ENABLED=true
//	export BIOMETRIC_URL=https://verifier.internal
//	export BIOMETRIC_API_KEY=...
//	./trustgate
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains the audit event buffer
//   - Closes store resources
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/Trollz1004/trustgate/internal/api"
	"github.com/Trollz1004/trustgate/internal/audit"
	"github.com/Trollz1004/trustgate/internal/challenge"
	"github.com/Trollz1004/trustgate/internal/config"
	"github.com/Trollz1004/trustgate/internal/logging"
	"github.com/Trollz1004/trustgate/internal/supervisor"
	"github.com/Trollz1004/trustgate/internal/supervisor/services"
	"github.com/Trollz1004/trustgate/internal/verification"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("store_backend", cfg.Store.Backend).
		Str("audit_backend", cfg.Audit.Backend).
		Bool("biometric_enabled", cfg.Biometric.Enabled).
		Int("threshold", cfg.Verification.Threshold).
		Msg("Starting TrustGate")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores: shared Badger DB for challenges and sessions when durable.
	var (
		badgerDB       *badger.DB
		challengeStore challenge.Store
		sessionStore   verification.SessionStore
	)
	if cfg.Store.Backend == "badger" {
		opts := badger.DefaultOptions(cfg.Store.Path).WithLogger(nil)
		badgerDB, err = badger.Open(opts)
		if err != nil {
			logging.Fatal().Err(err).Str("path", cfg.Store.Path).Msg("Failed to open BadgerDB")
		}
		defer func() {
			if err := badgerDB.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing BadgerDB")
			}
		}()
		challengeStore = challenge.NewBadgerStore(badgerDB)
		sessionStore = verification.NewBadgerSessionStore(badgerDB)
		logging.Info().Str("path", cfg.Store.Path).Msg("BadgerDB stores initialized")
	} else {
		challengeStore = challenge.NewMemoryStore(cfg.Challenge.MaxPending)
		sessionStore = verification.NewMemorySessionStore()
		logging.Info().Int("max_pending", cfg.Challenge.MaxPending).Msg("In-memory stores initialized")
	}

	// Audit trail with async writes; DuckDB when durable.
	var auditor *audit.Logger
	if cfg.Audit.Enabled {
		auditConfig := &audit.Config{
			Enabled:         true,
			RetentionDays:   cfg.Audit.RetentionDays,
			CleanupInterval: 24 * time.Hour,
			BufferSize:      cfg.Audit.BufferSize,
		}

		var auditStore audit.Store
		if cfg.Audit.Backend == "duckdb" {
			db, err := sql.Open("duckdb", cfg.Audit.Path)
			if err != nil {
				logging.Fatal().Err(err).Str("path", cfg.Audit.Path).Msg("Failed to open DuckDB")
			}
			defer func() {
				if err := db.Close(); err != nil {
					logging.Error().Err(err).Msg("Error closing DuckDB")
				}
			}()

			duckStore := audit.NewDuckDBStore(db)
			if err := duckStore.CreateTable(ctx); err != nil {
				logging.Fatal().Err(err).Msg("Failed to create audit events table")
			}
			auditStore = duckStore
			logging.Info().Str("path", cfg.Audit.Path).Msg("Audit logging initialized with DuckDB persistence")
		} else {
			auditStore = audit.NewMemoryStore(0)
			logging.Info().Msg("Audit logging initialized in memory")
		}

		auditor = audit.NewLogger(auditStore, auditConfig)
		defer func() {
			if err := auditor.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing audit logger")
			}
		}()
		auditor.StartCleanupRoutine(ctx)
	} else {
		logging.Warn().Msg("Audit logging disabled")
	}

	// External biometric verifier, breaker-protected.
	var biometric verification.BiometricVerifier
	if cfg.Biometric.Enabled {
		biometric = verification.NewBiometricClient(verification.BiometricClientConfig{
			URL:         cfg.Biometric.URL,
			APIKey:      cfg.Biometric.APIKey,
			Timeout:     cfg.Biometric.Timeout,
			RateLimit:   cfg.Biometric.RateLimit,
			RateBurst:   cfg.Biometric.RateBurst,
			MaxFailures: cfg.Biometric.MaxFailures,
			BreakerOpen: cfg.Biometric.BreakerOpen,
		})
		logging.Info().Str("url", cfg.Biometric.URL).Msg("Biometric verifier client initialized")
	}

	generator := challenge.NewGenerator(challengeStore)
	manager := verification.NewManager(sessionStore, challengeStore, generator, verification.Config{
		Threshold: cfg.Verification.Threshold,
		Biometric: biometric,
		Audit:     auditor,
	})

	handlers := api.NewHandlers(manager, generator, auditor, version)
	mw := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-ID"},
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handlers, mw),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Supervisor tree: maintenance loops in the data layer, HTTP in the
	// API layer. The slog adapter bridges zerolog to sutureslog.
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddDataService(services.NewCleanupService("challenge-sweeper", cfg.Challenge.CleanupInterval,
		func(ctx context.Context) (int, error) {
			return challengeStore.CleanupExpired(ctx)
		}))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// Signal handling for graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
