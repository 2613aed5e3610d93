package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ORACLE_TIMEOUT", "")
	t.Setenv("MATCH_CONCURRENCY", "")
	t.Setenv("STORE_DRIVER", "")

	cfg := Load()

	assert.Equal(t, 20*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 4, cfg.MatchConcurrency)
	assert.Equal(t, "1234", cfg.LoginDevCode)
	assert.True(t, cfg.UsesPostgres())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ORACLE_TIMEOUT", "5s")
	t.Setenv("MATCH_CONCURRENCY", "8")
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("DB_NAME", "campus")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 8, cfg.MatchConcurrency)
	assert.False(t, cfg.UsesPostgres())
	assert.Contains(t, cfg.DSN(), "dbname=campus")
}

func TestLoadRejectsGarbage(t *testing.T) {
	t.Setenv("ORACLE_TIMEOUT", "soon")
	t.Setenv("MATCH_CONCURRENCY", "-2")

	cfg := Load()

	assert.Equal(t, 20*time.Second, cfg.OracleTimeout)
	assert.Equal(t, 4, cfg.MatchConcurrency)
}
