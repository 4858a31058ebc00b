package app

import (
	"context"
	"fmt"

	"paydocs/internal/config"
	"paydocs/internal/domain/expiration"
	"paydocs/internal/infrastructure/storage/postgres"
	"paydocs/pkg/logger"
)

// Backend is the opened persistence layer shared by the binaries.
type Backend struct {
	Storage config.Storage
	Repos   Repositories

	// Pool and TxManager are nil for the memory backend.
	Pool      *postgres.Pool
	TxManager *postgres.TxManager
}

// OpenBackend connects the storage named by cfg, running migrations first
// when cfg asks for it.
func OpenBackend(ctx context.Context, cfg config.Config) (*Backend, error) {
	if cfg.Storage == config.StorageMemory {
		repos, _ := NewMemoryRepositories()
		logger.Warn(ctx, "using in-memory storage, data is lost on exit")
		return &Backend{Storage: cfg.Storage, Repos: repos}, nil
	}

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		logger.Info(ctx, "database migrations applied")
	}

	repos, txm, err := NewPostgresRepositories(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Backend{Storage: cfg.Storage, Repos: repos, Pool: pool, TxManager: txm}, nil
}

// Close releases the database pool.
func (b *Backend) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
}

// ExpirationConfig derives the scheduler limits from cfg.
func ExpirationConfig(cfg config.Config) expiration.Config {
	c := expiration.DefaultConfig()
	if cfg.ExpirationJobTimeout > 0 {
		c.JobTimeout = cfg.ExpirationJobTimeout
		c.LockTTL = cfg.ExpirationJobTimeout
	}
	return c
}
