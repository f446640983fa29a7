package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/syssam/loom/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "loom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "sqlite", cfg.Database.DialectName())
	assert.Equal(t, "file:loom.db", cfg.Database.DSN)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Zero(t, cfg.Session.SlowThreshold)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
database:
  dialect: postgres
  driver: pgx
  dsn: postgres://hr:hr@localhost:5432/hr?sslmode=disable
  max_open_conns: 25
  conn_max_lifetime: 30m
log:
  level: debug
  development: true
session:
  debug: true
  slow_threshold: 250ms
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Database.DialectName())
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, 2, cfg.Database.MaxIdleConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.True(t, cfg.Log.Development)
	assert.True(t, cfg.Session.Debug)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.SlowThreshold)
}

func TestLoadEnv(t *testing.T) {
	path := writeFile(t, "database:\n  driver: mysql\n  dsn: hr@tcp(localhost:3306)/hr\n")
	t.Setenv("LOOM_DATABASE_DSN", "hr@tcp(db:3306)/hr?parseTime=true")
	t.Setenv("LOOM_SESSION_SLOW_THRESHOLD", "1s")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "hr@tcp(db:3306)/hr?parseTime=true", cfg.Database.DSN)
	assert.Equal(t, time.Second, cfg.Session.SlowThreshold)
}

func TestLoadErrors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "config: read")

	_, err = config.Load(writeFile(t, "database:\n  dsn: \"\"\n"))
	assert.EqualError(t, err, "config: database.dsn is required")

	_, err = config.Load(writeFile(t, "session:\n  slow_threshold: -1s\n"))
	assert.EqualError(t, err, "config: negative session.slow_threshold")
}

func TestLogConfigBuild(t *testing.T) {
	log, err := config.LogConfig{Level: "warn"}.Build()
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))

	log, err = config.LogConfig{Level: "debug", Development: true}.Build()
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zapcore.DebugLevel))

	_, err = config.LogConfig{Level: "loud"}.Build()
	assert.ErrorContains(t, err, "config: log level")
}
