package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORAGE", "memory")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.ExpirationInterval)
	assert.True(t, cfg.MigrateOnStart)
	assert.True(t, cfg.Development())
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"STORAGE=memory\nAPP_PORT=9090\nEXPIRATION_INTERVAL=15m\nPAYDOCS_TEST_MARKER=from-file\n"), 0o600))
	t.Setenv("APP_PORT", "7070")
	t.Cleanup(func() {
		os.Unsetenv("STORAGE")
		os.Unsetenv("EXPIRATION_INTERVAL")
		os.Unsetenv("PAYDOCS_TEST_MARKER")
	})

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, 15*time.Minute, cfg.ExpirationInterval)
	assert.Equal(t, "from-file", os.Getenv("PAYDOCS_TEST_MARKER"))
}

func TestValidate(t *testing.T) {
	base := Config{Storage: StoragePostgres, DatabaseURL: "postgres://localhost/paydocs", ExpirationInterval: time.Minute}
	require.NoError(t, base.Validate())

	noDSN := base
	noDSN.DatabaseURL = ""
	assert.ErrorContains(t, noDSN.Validate(), "DATABASE_URL")

	unknown := base
	unknown.Storage = "mongo"
	assert.ErrorContains(t, unknown.Validate(), "unknown STORAGE")

	noInterval := base
	noInterval.ExpirationInterval = 0
	assert.Error(t, noInterval.Validate())
}
