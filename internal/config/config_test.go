package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MemoryNeedsNoDatabase(t *testing.T) {
	t.Setenv("APP_ENV", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("IDEMPOTENCY_ENABLED", "true")
	t.Setenv("LOOKUP_CACHE_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.InMemory())
	assert.True(t, cfg.Idempotency.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Redis.TTL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoad_DatabaseRequired(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/spareflow")
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("DB_STATEMENT_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int32(20), cfg.Database.MaxConns)
	assert.Equal(t, 30*time.Second, cfg.Database.StatementTimeout)
	assert.False(t, cfg.Development())
}
