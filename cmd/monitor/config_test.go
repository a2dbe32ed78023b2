package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("AMADEUS_API_KEY", "test-key")
	t.Setenv("AMADEUS_API_SECRET", "test-secret")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL", "")
	t.Setenv("PREFERENCES_BACKEND", "")
	t.Setenv("DB_HOST", "")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, time.Hour, cfg.CheckInterval)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, "file", cfg.PreferencesBackend)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, int32(10), cfg.Database.MaxConns)
	assert.Equal(t, int32(2), cfg.Database.MinConns)
	assert.Equal(t, 5*time.Minute, cfg.Database.ConnLifetime)
}

func TestLoadConfig_MissingCredentials(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("AMADEUS_API_SECRET", "")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_MissingBotToken(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsUnknownBackend(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PREFERENCES_BACKEND", "cassandra")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_RejectsBadInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("CHECK_INTERVAL", "-5m")

	_, err := loadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_DatabaseOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "5433")
	t.Setenv("DB_SSL_MODE", "require")

	cfg, err := loadConfig()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, "require", cfg.Database.SSLMode)
}
