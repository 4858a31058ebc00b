// Package main is the entry point for the paydocs background worker. It runs
// the expiration jobs on a fixed interval and prunes stale idempotency keys.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"paydocs/internal/app"
	"paydocs/internal/config"
	"paydocs/internal/domain/expiration"
	"paydocs/internal/infrastructure/lock"
	"paydocs/internal/infrastructure/metrics"
	"paydocs/internal/infrastructure/storage/postgres"
	"paydocs/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
		Service:     "paydocs-worker",
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	defer cancel()

	log.Infow("starting paydocs worker", "storage", cfg.Storage, "interval", cfg.ExpirationInterval)

	backend, err := app.OpenBackend(ctx, cfg)
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer backend.Close()

	locker, closeLocker := newLocker(ctx, cfg, log)
	defer closeLocker()

	services, err := app.New(backend.Repos, app.Options{
		Locker:     locker,
		Metrics:    metrics.NewScheduler(prometheus.DefaultRegisterer),
		Expiration: app.ExpirationConfig(cfg),
	})
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}

	worker := &Worker{
		scheduler: services.Expiration,
		interval:  cfg.ExpirationInterval,
		log:       log.WithComponent("worker"),
	}
	if backend.TxManager != nil {
		worker.idempotency = postgres.NewIdempotencyStore(backend.TxManager, cfg.IdempotencyTTL)
	}

	var metricsServer *http.Server
	if cfg.WorkerMetricsPort != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: ":" + cfg.WorkerMetricsPort, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Errorw("metrics server failed", "error", err)
			}
		}()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	wg.Wait()

	if metricsServer != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	log.Info("worker stopped")
}

// newLocker returns a Redis lock when REDIS_ADDR is set, so that several
// workers share one schedule, and an in-process lock otherwise.
func newLocker(ctx context.Context, cfg config.Config, log *logger.Logger) (expiration.Locker, func()) {
	if cfg.RedisAddr == "" {
		log.Info("REDIS_ADDR is empty, using in-process job lock")
		return lock.NewLocal(), func() {}
	}
	rdb, err := lock.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalw("failed to connect to redis", "error", err)
	}
	return lock.NewRedis(rdb, "paydocs"), func() { _ = rdb.Close() }
}

// Worker drives the periodic jobs.
type Worker struct {
	scheduler   *expiration.Scheduler
	idempotency *postgres.IdempotencyStore
	interval    time.Duration
	log         *logger.Logger
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.scheduler.RunForever(ctx, w.interval)
	}()

	if w.idempotency != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.cleanupIdempotency(ctx)
		}()
	}

	wg.Wait()
}

func (w *Worker) cleanupIdempotency(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.idempotency.CleanupExpired(ctx)
			if err != nil {
				w.log.Errorw("idempotency cleanup failed", "error", err)
				continue
			}
			if n > 0 {
				w.log.Infow("idempotency keys removed", "count", n)
			}
		}
	}
}
