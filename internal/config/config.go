// Package config loads process configuration from the environment, with
// optional .env files for local runs.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage selects the persistence backend.
type Storage string

const (
	StoragePostgres Storage = "postgres"
	StorageMemory   Storage = "memory"
)

// Config is shared by the server, worker and seed binaries.
type Config struct {
	AppEnv   string
	Port     string
	LogLevel string

	Storage        Storage
	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	JWTSecret      string
	IdempotencyTTL time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ExpirationInterval   time.Duration
	ExpirationJobTimeout time.Duration

	// WorkerMetricsPort serves /metrics from the worker. Empty disables it.
	WorkerMetricsPort string
}

// Development reports whether the process runs in development mode.
func (c Config) Development() bool {
	return c.AppEnv == "development"
}

// Load reads .env files (missing ones are ignored) and then the environment.
// Variables already set in the environment win over .env values.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	cfg := Config{
		AppEnv:   getEnv("APP_ENV", "development"),
		Port:     getEnv("APP_PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		Storage:        Storage(strings.ToLower(getEnv("STORAGE", string(StoragePostgres)))),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		DBMaxConns:     int32(getEnvInt("DB_MAX_CONNS", 20)),
		DBMinConns:     int32(getEnvInt("DB_MIN_CONNS", 2)),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		ExpirationInterval:   getEnvDuration("EXPIRATION_INTERVAL", time.Hour),
		ExpirationJobTimeout: getEnvDuration("EXPIRATION_JOB_TIMEOUT", 5*time.Minute),

		WorkerMetricsPort: getEnv("WORKER_METRICS_PORT", "9090"),
	}
	return cfg, cfg.Validate()
}

// Validate checks combinations the binaries cannot start with.
func (c Config) Validate() error {
	switch c.Storage {
	case StoragePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE %q", c.Storage)
	}
	if c.ExpirationInterval <= 0 {
		return errors.New("EXPIRATION_INTERVAL must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
