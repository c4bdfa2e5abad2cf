package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, key := range []string{"SERVER_PORT", "STORAGE_DRIVER", "DB_APPLY_SCHEMA", "REDIS_URL", "NOTIFY_TIMEOUT", "DB_SCOPED_ROLE"} {
		t.Setenv(key, "")
	}
	// t.Setenv registers cleanup; unset so fallbacks apply.
	unset(t, "SERVER_PORT", "STORAGE_DRIVER", "DB_APPLY_SCHEMA", "REDIS_URL", "NOTIFY_TIMEOUT", "DB_SCOPED_ROLE")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.False(t, cfg.DBApplySchema)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, "campusnet_app", cfg.DBScopedRole)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
}

func TestLoad_Overrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORAGE_DRIVER", DriverMemory)
	t.Setenv("DB_APPLY_SCHEMA", "true")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("NOTIFY_TIMEOUT", "250ms")
	t.Setenv("DB_SCOPED_ROLE", "")

	cfg := Load()

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.True(t, cfg.DBApplySchema)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	assert.Equal(t, 250*time.Millisecond, cfg.NotifyTimeout)
	assert.Empty(t, cfg.DBScopedRole, "an explicitly empty role disables SET ROLE")
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("DB_APPLY_SCHEMA", "maybe")
	t.Setenv("NOTIFY_TIMEOUT", "-1s")

	cfg := Load()

	assert.False(t, cfg.DBApplySchema)
	assert.Equal(t, 5*time.Second, cfg.NotifyTimeout)
}

func unset(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unsetenv %s: %v", key, err)
		}
	}
}
