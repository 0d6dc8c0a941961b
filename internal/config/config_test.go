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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Addr)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, int64(0), cfg.MaxConcurrentJobs)
	assert.Empty(t, cfg.JournalPath)
	assert.Empty(t, cfg.SweepSchedule)
	assert.Equal(t, time.Hour, cfg.SweepMaxAge)
	assert.False(t, cfg.DesktopNotifications)
}

func TestLoad_FileOverridesDefinedKeysOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remora.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr = ":9000"
poll_interval_ms = 50
max_concurrent_jobs = 4
journal_path = "jobs.db"
sweep_schedule = "*/5 * * * *"
sweep_max_age_seconds = 120
desktop_notifications = true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 50*time.Millisecond, cfg.PollInterval)
	assert.Equal(t, int64(4), cfg.MaxConcurrentJobs)
	assert.Equal(t, "jobs.db", cfg.JournalPath)
	assert.Equal(t, "*/5 * * * *", cfg.SweepSchedule)
	assert.Equal(t, 2*time.Minute, cfg.SweepMaxAge)
	assert.True(t, cfg.DesktopNotifications)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestLoad_RejectsNonPositivePollInterval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remora.toml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval_ms = 0\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "remora.toml")
	require.NoError(t, os.WriteFile(path, []byte("addr = \":9000\"\n"), 0o644))

	t.Setenv("REMORA_ADDR", ":7777")
	t.Setenv("REMORA_MAX_CONCURRENT_JOBS", "8")
	t.Setenv("REMORA_DESKTOP_NOTIFICATIONS", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Addr)
	assert.Equal(t, int64(8), cfg.MaxConcurrentJobs)
	assert.True(t, cfg.DesktopNotifications)
}
