package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cronhelper/internal/shared"
)

// clearEnv isolates tests from the caller's environment and any .env file.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, k := range []string{
		"ENV", "HTTP_ADDR", "LOG_CONSOLE_LEVEL", "LOG_FILE_LEVEL", "LOG_FILE",
		"STORE_DRIVER", "SQLITE_PATH", "DATABASE_URL", "PG_MAX_CONNS",
		"CRON_TICK", "HEARTBEAT_INTERVAL", "MAINTENANCE_INTERVAL",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prod", c.Env)
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, "info", c.Log.ConsoleLevel)
	assert.Equal(t, "sqlite", c.Store.Driver)
	assert.Equal(t, "data/cron.db", c.Store.SQLitePath)
	assert.Equal(t, int32(4), c.Store.PGMaxConns)
	assert.Equal(t, time.Minute, c.Cron.Tick)
	assert.Equal(t, int64(120), c.Cron.HeartbeatInterval)
	assert.Equal(t, int64(86400), c.Cron.MaintenanceInterval)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_CONSOLE_LEVEL", "DEBUG")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://cron:secret@db:5432/cron")
	t.Setenv("PG_MAX_CONNS", "12")
	t.Setenv("CRON_TICK", "15")
	t.Setenv("HEARTBEAT_INTERVAL", "3600")
	t.Setenv("MAINTENANCE_INTERVAL", "43200")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", c.Log.ConsoleLevel)
	assert.Equal(t, "postgres", c.Store.Driver)
	assert.Equal(t, int32(12), c.Store.PGMaxConns)
	assert.Equal(t, 15*time.Second, c.Cron.Tick)
	assert.Equal(t, int64(3600), c.Cron.HeartbeatInterval)
	assert.Equal(t, int64(43200), c.Cron.MaintenanceInterval)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"bad env", map[string]string{"ENV": "staging"}},
		{"bad driver", map[string]string{"STORE_DRIVER": "mysql"}},
		{"postgres without url", map[string]string{"STORE_DRIVER": "postgres"}},
		{"tick too short", map[string]string{"CRON_TICK": "500ms"}},
		{"tick garbage", map[string]string{"CRON_TICK": "soon"}},
		{"heartbeat garbage", map[string]string{"HEARTBEAT_INTERVAL": "often"}},
		{"negative maintenance", map[string]string{"MAINTENANCE_INTERVAL": "-5"}},
		{"zero pool", map[string]string{"PG_MAX_CONNS": "0"}},
		{"pool garbage", map[string]string{"PG_MAX_CONNS": "many"}},
		{"pool too large", map[string]string{"PG_MAX_CONNS": "5000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.True(t, shared.IsValidation(err), "got %v", err)
		})
	}
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"30", 30 * time.Second},
		{"010", 10 * time.Second},
		{" 45 ", 45 * time.Second},
		{"90s", 90 * time.Second},
		{"5m", 5 * time.Minute},
		{"1h30m", 90 * time.Minute},
	}
	for _, tt := range tests {
		got, err := parseDuration(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, in := range []string{"later", "0x10"} {
		_, err := parseDuration(in)
		assert.Error(t, err, in)
	}
}

func TestLoad_DecimalIntervals(t *testing.T) {
	clearEnv(t)
	t.Setenv("CRON_TICK", "010")
	t.Setenv("HEARTBEAT_INTERVAL", "0900")
	t.Setenv("MAINTENANCE_INTERVAL", " 3600 ")

	c, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Second, c.Cron.Tick)
	assert.Equal(t, int64(900), c.Cron.HeartbeatInterval)
	assert.Equal(t, int64(3600), c.Cron.MaintenanceInterval)
}
