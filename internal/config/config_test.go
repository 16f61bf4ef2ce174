package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "careops", cfg.Database.DBName)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 6379, cfg.Redis.Port)
	assert.Equal(t, 2*time.Hour, cfg.Auth.PreAuthTTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 14*24*time.Hour, cfg.Scheduler.LookAheadDuration)
	assert.Equal(t, time.Hour, cfg.Scheduler.ExpansionInterval)
	assert.Equal(t, "notifications", cfg.Notifications.Queue)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := []byte(`
server:
  port: 9000
auth:
  internal_secret: "shared-secret"
  preauth_secret: "signing-secret"
  preauth_ttl: "1h"
scheduler:
  look_ahead_duration: "72h"
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := LoadWithPath(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "shared-secret", cfg.Auth.InternalSecret)
	assert.Equal(t, "signing-secret", cfg.Auth.PreAuthSecret)
	assert.Equal(t, time.Hour, cfg.Auth.PreAuthTTL)
	assert.Equal(t, 72*time.Hour, cfg.Scheduler.LookAheadDuration)

	// Untouched sections keep their defaults.
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestDatabaseConfigConversion(t *testing.T) {
	dbCfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "api",
		Password: "pw",
		DBName:   "careops",
		SSLMode:  "require",
	}

	converted := dbCfg.ToDBConfig()
	assert.Equal(t, "db.internal", converted.Host)
	assert.Equal(t, 5433, converted.Port)
	assert.Equal(t, "require", converted.SSLMode)
}
