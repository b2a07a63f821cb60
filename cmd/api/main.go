// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the ShiftSphere HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Open the credential store selected by STORE_DRIVER (running migrations for Postgres).
//  4. Connect to Redis when configured, for cross-instance notifications.
//  5. Build the token codec, hasher, mailer and identity services.
//  6. Seed the administrator account.
//  7. Start background workers (hub, broker, session pruning).
//  8. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/taibuivan/shiftsphere/internal/api"
	"github.com/taibuivan/shiftsphere/internal/platform/config"
	"github.com/taibuivan/shiftsphere/internal/platform/constants"
	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
	"github.com/taibuivan/shiftsphere/internal/platform/logger"
	"github.com/taibuivan/shiftsphere/internal/platform/mailer"
	"github.com/taibuivan/shiftsphere/internal/platform/metrics"
	"github.com/taibuivan/shiftsphere/internal/platform/middleware"
	"github.com/taibuivan/shiftsphere/internal/platform/migration"
	mongostore "github.com/taibuivan/shiftsphere/internal/platform/mongodb"
	pgstore "github.com/taibuivan/shiftsphere/internal/platform/postgres"
	redisstore "github.com/taibuivan/shiftsphere/internal/platform/redis"
	"github.com/taibuivan/shiftsphere/internal/platform/sec"
	"github.com/taibuivan/shiftsphere/internal/realtime"
	"github.com/taibuivan/shiftsphere/internal/users/account"
	"github.com/taibuivan/shiftsphere/internal/users/auth"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := logger.New(logger.Options{Level: "info"})
	log.Info().Msg("[ShiftSphere] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log = logger.New(logger.Options{Level: level, Development: cfg.IsDevelopment()})
	log.Debug().Msg("debug_logging_enabled")

	log.Info().
		Str("environment", cfg.Environment).
		Str("port", cfg.ServerPort).
		Str("store_driver", cfg.StoreDriver).
		Msg("configuration_loaded")

	// Root context for background workers, cancelled on shutdown.
	rootCtx, rootCancel := context.WithCancel(ctxutil.WithLogger(context.Background(), log))
	defer rootCancel()

	// Startup deadline so misconfiguration is caught quickly rather than hanging.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, constants.StartupTimeout)
	defer startupCancel()

	// ── 3. Credential Store ───────────────────────────────────────────────
	store, checks, closeStore, err := openStore(startupCtx, cfg, log)
	must(log, err, "open credential store")
	defer closeStore()

	// ── 4. Metrics & Realtime ─────────────────────────────────────────────
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.New(registry)

	hub := realtime.NewHub(recorder)
	var notifier realtime.Notifier = hub

	if cfg.RedisURL != "" {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info().Msg("closing redis client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error().Err(cerr).Msg("redis close error")
			}
		}()

		broker := realtime.NewRedisBroker(rdb, hub)
		notifier = broker
		go broker.Run(rootCtx, log)

		checks = append(checks, api.DependencyCheck{
			Name: "redis",
			Ping: func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) },
		})
	}
	go hub.Run(rootCtx)

	// ── 5. Security primitives ────────────────────────────────────────────
	codec, err := sec.NewTokenCodec(sec.CodecConfig{
		AccessSecret:  cfg.JWT.AccessSecret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
	})
	must(log, err, "initialize token codec")

	hasher, err := sec.NewPasswordHasher(cfg.PasswordHasher, sec.DefaultBcryptCost)
	must(log, err, "initialize password hasher")

	sender := mailer.New(mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, cfg.IsDevelopment())

	var google auth.ExternalVerifier
	if cfg.GoogleClientID != "" {
		google = auth.NewGoogleVerifier(cfg.GoogleClientID)
	} else {
		log.Warn().Msg("google_sign_in_disabled")
	}

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	sessions := auth.NewSessionManager(store, codec, notifier, recorder)
	authService := auth.NewService(store, sessions, hasher, google, sender, notifier, recorder, auth.ServiceConfig{
		ClientURL:          cfg.ClientURL,
		RevealUnknownEmail: cfg.RevealUnknownEmail,
	})
	accountService := account.NewService(store, sessions, notifier)

	must(log, authService.EnsureAdmin(startupCtx, cfg.Admin.Email, cfg.Admin.Password, cfg.Admin.Name), "seed admin account")

	protect := middleware.Protect(codec, authService)
	protectSocket := middleware.Protect(codec, authService, middleware.WithQueryToken())

	liveness, readiness := api.NewHealthHandlers(checks, log)

	go pruneSessions(rootCtx, sessions, codec.RefreshTTL(), log)

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   metrics.Handler(registry),
		Realtime:  protectSocket(realtime.NewHandler(hub, cfg)),
		Auth:      auth.NewHandler(authService, protect),
		Account:   account.NewHandler(accountService, protect),
	}

	server := api.NewServer(rootCtx, cfg, log, recorder, handlers)

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
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-serverErr:
		log.Error().Err(err).Msg("server startup error")
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info().Dur("timeout", shutdownTimeout).Msg("shutting down server")

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}

	// Stops the hub, the broker and the prune loop.
	rootCancel()

	log.Info().Msg("server stopped cleanly")
}

/*
openStore connects the credential store selected by STORE_DRIVER.

Returns:
  - auth.AccountStore: The store
  - []api.DependencyCheck: Readiness probes for the store's backend
  - func(): Releases the backend connection
  - error: Connection or migration failures
*/
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (auth.AccountStore, []api.DependencyCheck, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closePool := func() {
			log.Info().Msg("closing postgres pool")
			pool.Close()
		}

		if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
			closePool()
			return nil, nil, nil, err
		}

		checks := []api.DependencyCheck{{
			Name: "postgres",
			Ping: func(ctx context.Context) error { return pgstore.Ping(ctx, pool) },
		}}
		return auth.NewPostgresAccountStore(pool), checks, closePool, nil

	case config.StoreDriverMongo:
		client, err := mongostore.NewClient(ctx, cfg.MongoURI, log)
		if err != nil {
			return nil, nil, nil, err
		}
		closeClient := func() {
			log.Info().Msg("closing mongodb client")
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Error().Err(err).Msg("mongodb disconnect error")
			}
		}

		store, err := auth.NewMongoAccountStore(ctx, client.Database(cfg.MongoDatabase))
		if err != nil {
			closeClient()
			return nil, nil, nil, err
		}

		checks := []api.DependencyCheck{{
			Name: "mongodb",
			Ping: func(ctx context.Context) error { return mongostore.Ping(ctx, client) },
		}}
		return store, checks, closeClient, nil

	default:
		log.Warn().Msg("using in-memory credential store; data is lost on restart")
		return auth.NewMemoryAccountStore(), nil, func() {}, nil
	}
}

// pruneSessions drops expired refresh-session entries until ctx is cancelled.
func pruneSessions(ctx context.Context, sessions *auth.SessionManager, refreshTTL time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(constants.SessionPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sessions.Prune(ctx, refreshTTL); err != nil {
				log.Error().Err(err).Msg("session_prune_failed")
			}
		}
	}
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log zerolog.Logger, err error, context string) {
	if err != nil {
		log.Error().Str("context", context).Err(err).Msg("startup failure")
		os.Exit(1)
	}
}
