// Package main is the entry point for the paydocs API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"paydocs/internal/app"
	"paydocs/internal/config"
	"paydocs/internal/domain/auth"
	v1 "paydocs/internal/infrastructure/http/v1"
	"paydocs/internal/infrastructure/http/v1/middleware"
	"paydocs/internal/infrastructure/metrics"
	"paydocs/internal/infrastructure/storage/postgres"
	"paydocs/pkg/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
		Service:     "paydocs-server",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := logger.WithLogger(context.Background(), log)
	log.Infow("starting paydocs server", "storage", cfg.Storage, "version", version)

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	services, err := app.New(backend.Repos, app.Options{
		Metrics:    metrics.NewScheduler(prometheus.DefaultRegisterer),
		Expiration: app.ExpirationConfig(cfg),
	})
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}
	if cfg.Storage == config.StorageMemory {
		if _, err := app.SeedDemo(ctx, services); err != nil {
			log.Fatalw("failed to seed demo data", "error", err)
		}
		log.Info("demo catalog seeded")
	}

	// --- Router ---
	routerCfg := v1.RouterConfig{
		Services:    services,
		Pool:        backend.Pool,
		Storage:     string(cfg.Storage),
		Version:     version,
		Logger:      log,
		HTTPMetrics: metrics.NewHTTP(prometheus.DefaultRegisterer),
		Debug:       cfg.Development(),
	}
	if cfg.JWTSecret != "" {
		routerCfg.JWTValidator = auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))
	} else {
		log.Warn("JWT_SECRET is empty, authentication is disabled")
	}
	if backend.TxManager != nil {
		routerCfg.Idempotency = idempotencyStore(backend.TxManager, cfg.IdempotencyTTL)
	}
	router := v1.NewRouter(routerCfg)

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

func idempotencyStore(txm *postgres.TxManager, ttl time.Duration) middleware.IdempotencyStore {
	return postgres.NewIdempotencyStore(txm, ttl)
}
