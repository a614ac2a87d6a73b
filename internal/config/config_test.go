package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "default.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 100, cfg.Telemetry.Capacity)
	assert.Equal(t, 24, cfg.Telemetry.DefaultHours)
	assert.Equal(t, "irrigation.actuations", cfg.NATS.Subject)
	assert.Empty(t, cfg.Redis.Addr, "backends are disabled unless configured")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), `
server:
  port: "9090"
telemetry:
  capacity: 500
rate_limit:
  soil_data:
    rate: 10
    window: 30s
redis:
  addr: "localhost:6379"
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 500, cfg.Telemetry.Capacity)
	assert.Equal(t, 24, cfg.Telemetry.DefaultHours)
	assert.Equal(t, 10, cfg.RateLimit.SoilData.Rate)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.SoilData.Window)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("INFLUXDB_URL", "http://influx:8086")
	t.Setenv("INFLUXDB_ORG", "farm")
	t.Setenv("INFLUXDB_BUCKET", "soil")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "crop")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("DB_NAME", "smartcrop")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "http://influx:8086", cfg.Influx.URL)
	assert.Equal(t, "postgres://crop:secret@db:5432/smartcrop?sslmode=disable", cfg.Postgres.DSN)

	t.Setenv("DATABASE_URL", "postgres://explicit")
	cfg, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "postgres://explicit", cfg.Postgres.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(writeFile(t, dir, "telemetry:\n  capacity: 0\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "influx:\n  url: http://x\n"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, dir, "server: [not, a, map]\n"))
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnlyWhenModified(t *testing.T) {
	p := writeFile(t, t.TempDir(), "rate_limit:\n  soil_data:\n    rate: 5\n    window: 1m\n")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(p, past, past))

	var got atomic.Int64
	w := NewWatcher(p, func(c *Config) { got.Store(int64(c.RateLimit.SoilData.Rate)) })

	assert.False(t, w.reloadIfChanged())

	require.NoError(t, os.WriteFile(p, []byte("rate_limit:\n  soil_data:\n    rate: 9\n    window: 1m\n"), 0o644))
	assert.True(t, w.reloadIfChanged())
	assert.Equal(t, int64(9), got.Load())
	assert.False(t, w.reloadIfChanged())
}

func TestWatcher_KeepsPreviousOnBadFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "telemetry:\n  capacity: 10\n")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(p, past, past))

	called := false
	w := NewWatcher(p, func(*Config) { called = true })

	require.NoError(t, os.WriteFile(p, []byte("telemetry:\n  capacity: -1\n"), 0o644))
	assert.False(t, w.reloadIfChanged())
	assert.False(t, called)
}

func TestWatcher_StartPicksUpWrites(t *testing.T) {
	p := writeFile(t, t.TempDir(), "rate_limit:\n  soil_data:\n    rate: 1\n    window: 1m\n")
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(p, past, past))

	var got atomic.Int64
	w := NewWatcher(p, func(c *Config) { got.Store(int64(c.RateLimit.SoilData.Rate)) })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	w.Start(ctx)
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, os.WriteFile(p, []byte("rate_limit:\n  soil_data:\n    rate: 42\n    window: 1m\n"), 0o644))

	require.Eventually(t, func() bool { return got.Load() == 42 }, 3*time.Second, 25*time.Millisecond)
}
