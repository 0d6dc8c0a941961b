// Package config loads the remora daemon configuration: defaults, overlaid
// by an optional TOML file, overlaid by REMORA_* environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// AllowedOrigins feeds the CORS layer.
	AllowedOrigins []string
	// PollInterval is the engine's bounded-wait polling step.
	PollInterval time.Duration
	// MaxConcurrentJobs caps concurrent callables; zero keeps execution
	// unbounded.
	MaxConcurrentJobs int64
	// JournalPath is the DuckDB file for the terminal-job journal; empty
	// disables journaling.
	JournalPath string
	// SweepSchedule is a cron expression for the automatic expiry sweep;
	// empty disables it.
	SweepSchedule string
	// SweepMaxAge is the age past which a sweep removes jobs.
	SweepMaxAge time.Duration
	// DesktopNotifications routes completion notifications to the OS
	// notification center instead of the log.
	DesktopNotifications bool
}

func Default() Config {
	return Config{
		Addr:           ":8000",
		AllowedOrigins: []string{"*"},
		PollInterval:   100 * time.Millisecond,
		SweepMaxAge:    time.Hour,
	}
}

// fileConfig is the TOML key mapping; durations are expressed in
// milliseconds/seconds as noted per field.
type fileConfig struct {
	Addr                 string   `toml:"addr"`
	AllowedOrigins       []string `toml:"allowed_origins"`
	PollIntervalMS       int      `toml:"poll_interval_ms"`
	MaxConcurrentJobs    int64    `toml:"max_concurrent_jobs"`
	JournalPath          string   `toml:"journal_path"`
	SweepSchedule        string   `toml:"sweep_schedule"`
	SweepMaxAgeSeconds   int      `toml:"sweep_max_age_seconds"`
	DesktopNotifications bool     `toml:"desktop_notifications"`
}

// Load builds the effective config. path may be empty, in which case only
// defaults and environment overrides apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		var raw fileConfig
		meta, err := toml.DecodeFile(path, &raw)
		if err != nil {
			return Config{}, fmt.Errorf("load config file: %w", err)
		}
		if meta.IsDefined("addr") {
			cfg.Addr = strings.TrimSpace(raw.Addr)
		}
		if meta.IsDefined("allowed_origins") {
			cfg.AllowedOrigins = raw.AllowedOrigins
		}
		if meta.IsDefined("poll_interval_ms") {
			cfg.PollInterval = time.Duration(raw.PollIntervalMS) * time.Millisecond
		}
		if meta.IsDefined("max_concurrent_jobs") {
			cfg.MaxConcurrentJobs = raw.MaxConcurrentJobs
		}
		if meta.IsDefined("journal_path") {
			cfg.JournalPath = strings.TrimSpace(raw.JournalPath)
		}
		if meta.IsDefined("sweep_schedule") {
			cfg.SweepSchedule = strings.TrimSpace(raw.SweepSchedule)
		}
		if meta.IsDefined("sweep_max_age_seconds") {
			cfg.SweepMaxAge = time.Duration(raw.SweepMaxAgeSeconds) * time.Second
		}
		if meta.IsDefined("desktop_notifications") {
			cfg.DesktopNotifications = raw.DesktopNotifications
		}
	}

	applyEnv(&cfg)

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll interval must be positive")
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REMORA_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("REMORA_JOURNAL_PATH"); v != "" {
		cfg.JournalPath = v
	}
	if v := os.Getenv("REMORA_SWEEP_SCHEDULE"); v != "" {
		cfg.SweepSchedule = v
	}
	if v := os.Getenv("REMORA_MAX_CONCURRENT_JOBS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxConcurrentJobs = n
		}
	}
	if v := os.Getenv("REMORA_DESKTOP_NOTIFICATIONS"); v != "" {
		cfg.DesktopNotifications = v == "1" || strings.EqualFold(v, "true")
	}
}
