// Copyright (c) 2026 AnimeIDs. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the AnimeIDs HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the dataset and auth key-value namespaces (redis, postgres or memory).
//  4. Build the session verifier and API-key registry.
//  5. Wire the access gate, rate limiter and IP guard.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/animeids/internal/access"
	"github.com/taibuivan/animeids/internal/api"
	"github.com/taibuivan/animeids/internal/mapping"
	"github.com/taibuivan/animeids/internal/platform/config"
	"github.com/taibuivan/animeids/internal/platform/constants"
	"github.com/taibuivan/animeids/internal/platform/kv"
	"github.com/taibuivan/animeids/internal/platform/middleware"
	"github.com/taibuivan/animeids/internal/platform/migration"
	pgstore "github.com/taibuivan/animeids/internal/platform/postgres"
	"github.com/taibuivan/animeids/internal/platform/ratelimit"
	redisstore "github.com/taibuivan/animeids/internal/platform/redis"
	"github.com/taibuivan/animeids/internal/platform/sec"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("[AnimeIDs] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("store_driver", cfg.StoreDriver),
		slog.Bool("require_auth", cfg.RequireAuth),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. Stores ─────────────────────────────────────────────────────────
	dataset, auth, closeStores := openStores(startupCtx, cfg, log)
	defer closeStores()

	// ── 4. Credentials ────────────────────────────────────────────────────
	var sessions access.SessionVerifier
	if cfg.SessionVerifierEnabled() {
		keys := sessionKeys(cfg, log)

		var opts []sec.VerifierOption
		if cfg.SessionIssuer != "" {
			opts = append(opts, sec.WithIssuer(cfg.SessionIssuer))
		}
		sessions = sec.NewSessionVerifier(keys, cfg.SessionAuthorizedParties, opts...)
	} else {
		log.Warn("session_verifier_disabled")
	}

	cachedSessions := access.NewCachedVerifier(sessions, auth, cfg.SessionCacheTTL)
	registry := access.NewKeyRegistry(auth, sec.NewKeyHasher(cfg.APIKeySalt), cfg.APIKeyPrefix)

	// ── 5. Admission ──────────────────────────────────────────────────────
	gate := access.NewGate(registry, cachedSessions, cfg.APIKeyPrefix)

	limiter := ratelimit.NewLimiter(auth, ratelimit.Limits{
		sec.TierFree:       cfg.RateLimitFree,
		sec.TierPro:        cfg.RateLimitPro,
		sec.TierEnterprise: cfg.RateLimitEnterprise,
	})

	lookupScope := access.ScopePublic
	if cfg.RequireAuth {
		lookupScope = access.ScopeAPI
	}

	ipGuard := middleware.NewIPGuard(constants.IPGuardRPS, constants.IPGuardBurst)

	serveCtx, stopServe := context.WithCancel(context.Background())
	defer stopServe()
	go ipGuard.Run(serveCtx)

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	records := mapping.NewRecordStore(dataset)
	service := mapping.NewService(mapping.DefaultAliasTable(), records, mapping.NewURIBuilder(mapping.DefaultRoutes()))

	health := api.NewHealthHandler(api.HealthDependencies{
		Dataset:     dataset,
		Auth:        auth,
		Records:     records,
		StoreDriver: cfg.StoreDriver,
		RequireAuth: cfg.RequireAuth,
		HomepageURL: cfg.HomepageURL,
	}, log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Health:  health,
		Mapping: mapping.NewHandler(service, cfg.DatasetArchiveURL),
		Access:  access.NewHandler(registry),
	}
	guards := api.Guards{
		Lookup:  gate.For(lookupScope),
		Session: gate.For(access.ScopeSession),
		Limiter: limiter,
		IP:      ipGuard,
	}

	server := api.NewServer(cfg, log, guards, handlers)

	// ── 8. Graceful Shutdown ──────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

// newLogger builds the JSON logger with the global app attribute.
func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

/*
openStores connects the dataset and auth namespaces for the configured driver.

Returns:
  - kv.Store: Dataset namespace
  - kv.Store: Auth and rate-limit namespace
  - func(): Releases the underlying connections
*/
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (kv.Store, kv.Store, func()) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")

		must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

		closer := func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}
		return kv.NewPostgresStore(pool, "dataset"), kv.NewPostgresStore(pool, "auth"), closer

	case config.DriverMemory:
		dataset := kv.NewMemoryStore()
		if cfg.DatasetSeedPath != "" {
			loaded, err := dataset.LoadSnapshot(cfg.DatasetSeedPath)
			must(log, err, "load dataset snapshot")
			log.Info("dataset_snapshot_loaded", slog.Int("entries", loaded))
		}
		return dataset, kv.NewMemoryStore(), func() {}

	default:
		datasetClient, err := redisstore.NewClient(ctx, "dataset", cfg.DatasetRedisURL, redisstore.DatasetPool, log)
		must(log, err, "connect to dataset redis")

		authClient, err := redisstore.NewClient(ctx, "auth", cfg.AuthRedisURL, redisstore.AuthPool, log)
		must(log, err, "connect to auth redis")

		closer := func() {
			log.Info("closing_redis_clients")
			for _, client := range []interface{ Close() error }{datasetClient, authClient} {
				if cerr := client.Close(); cerr != nil {
					log.Error("redis_close_error", slog.Any("error", cerr))
				}
			}
		}
		return kv.NewRedisStore(datasetClient), kv.NewRedisStore(authClient), closer
	}
}

// sessionKeys selects the configured signing key source.
func sessionKeys(cfg *config.Config, log *slog.Logger) sec.KeySource {
	if cfg.SessionPublicKeyPath != "" {
		key, err := sec.LoadStaticKey(cfg.SessionPublicKeyPath)
		must(log, err, "load session public key")
		return key
	}
	return sec.NewJWKSCache(cfg.SessionJWKSURL, nil, constants.JWKSRefreshInterval)
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
