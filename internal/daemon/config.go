// Package daemon manages the syncfix daemon lifecycle and configuration.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/syncfix/syncfix/internal/app/orchestrator"
	"github.com/syncfix/syncfix/internal/domain"
	"github.com/syncfix/syncfix/internal/infra/process"
)

// Config holds all daemon configuration.
type Config struct {
	IdleTrigger      IdleTriggerConfig      `toml:"idle_trigger"`
	ScheduledTrigger ScheduledTriggerConfig `toml:"scheduled_trigger"`
	Cooldown         CooldownConfig         `toml:"cooldown"`
	Sync             SyncConfig             `toml:"sync"`
	Scheduler        SchedulerConfig        `toml:"scheduler"`
	Apps             AppsConfig             `toml:"apps"`
	API              APIConfig              `toml:"api"`
	Logging          LoggingConfig          `toml:"logging"`
	Telemetry        TelemetryConfig        `toml:"telemetry"`

	// Warnings lists the adjustments made by Normalize during load.
	Warnings []string `toml:"-"`
}

// IdleTriggerConfig fires a run when the machine has been idle long enough.
type IdleTriggerConfig struct {
	Enabled     bool `toml:"enabled"`
	IdleMinutes int  `toml:"idle_minutes"`
}

// ScheduledTriggerConfig fires a run at a wall-clock time.
type ScheduledTriggerConfig struct {
	Enabled bool     `toml:"enabled"`
	Time    string   `toml:"time"` // HH:MM, local time
	Days    []string `toml:"days"` // "daily" or weekday names
}

// CooldownConfig is the minimum gap between automatic runs.
type CooldownConfig struct {
	Minutes int `toml:"minutes"`
}

// SyncConfig controls the orchestrator.
type SyncConfig struct {
	WaitMinutes      int    `toml:"wait_minutes"`
	MaxRetryAttempts int    `toml:"max_retry_attempts"`
	RetryFailedRuns  bool   `toml:"retry_failed_runs"`
	DryRun           bool   `toml:"dry_run"`
	ProgressInterval string `toml:"progress_interval"`
	ChatStopSettle   string `toml:"chat_stop_settle"`
	SyncStopSettle   string `toml:"sync_stop_settle"`
	SyncStartSettle  string `toml:"sync_start_settle"`
	StableTimeout    string `toml:"stable_timeout"`
}

// SchedulerConfig controls the trigger polling loop.
type SchedulerConfig struct {
	PollInterval     string `toml:"poll_interval"`
	DisabledInterval string `toml:"disabled_interval"`
	ErrorBackoff     string `toml:"error_backoff"`
}

// AppsConfig describes the two controlled applications.
type AppsConfig struct {
	Chat AppConfig `toml:"chat"`
	Sync AppConfig `toml:"sync"`
}

// AppConfig locates one application.
type AppConfig struct {
	Name   string   `toml:"name"`
	Images []string `toml:"images"`
	Paths  []string `toml:"paths"`
	Args   []string `toml:"args"`
}

// APIConfig controls the HTTP control API.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	homeDir := syncfixHome()
	return Config{
		IdleTrigger: IdleTriggerConfig{
			Enabled:     true,
			IdleMinutes: 10,
		},
		ScheduledTrigger: ScheduledTriggerConfig{
			Enabled: false,
			Time:    "05:00",
			Days:    []string{"daily"},
		},
		Cooldown: CooldownConfig{
			Minutes: 20,
		},
		Sync: SyncConfig{
			WaitMinutes:      5,
			MaxRetryAttempts: 3,
			ProgressInterval: "10s",
			ChatStopSettle:   "2s",
			SyncStopSettle:   "3s",
			SyncStartSettle:  "3s",
			StableTimeout:    "30s",
		},
		Scheduler: SchedulerConfig{
			PollInterval:     "5s",
			DisabledInterval: "30s",
			ErrorBackoff:     "60s",
		},
		Apps: AppsConfig{
			Chat: AppConfig{
				Name:   "WeChat",
				Images: []string{"Weixin.exe"},
				Paths: []string{
					`%ProgramFiles%\Tencent\Weixin\Weixin.exe`,
					`%ProgramFiles(x86)%\Tencent\Weixin\Weixin.exe`,
					`%APPDATA%\Tencent\Weixin\Weixin.exe`,
					`%LOCALAPPDATA%\Tencent\Weixin\Weixin.exe`,
				},
			},
			Sync: AppConfig{
				Name:   "OneDrive",
				Images: []string{"OneDrive.exe", "Microsoft.SharePoint.exe"},
				Paths: []string{
					`%LOCALAPPDATA%\Microsoft\OneDrive\OneDrive.exe`,
					`%ProgramFiles%\Microsoft OneDrive\OneDrive.exe`,
					`%ProgramFiles(x86)%\Microsoft OneDrive\OneDrive.exe`,
				},
				Args: []string{"/background"},
			},
		},
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        18620,
			CORSOrigins: []string{"http://127.0.0.1", "http://localhost"},
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, "syncfix.log"),
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
	}
}

// LoadConfig reads config from ~/.syncfix/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	return LoadConfigFile(ConfigPath())
}

// LoadConfigFile reads config from path. A missing file yields defaults.
// Out-of-range values are clamped, never rejected.
func LoadConfigFile(path string) (Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet, use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config: %w", err)
	}

	cfg.Warnings = cfg.Normalize()
	return cfg, nil
}

// SaveConfig writes the config to ~/.syncfix/config.toml.
func SaveConfig(cfg Config) error {
	return SaveConfigFile(cfg, ConfigPath())
}

// SaveConfigFile writes the config to path.
func SaveConfigFile(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ─── Normalization ──────────────────────────────────────────────────────────

// Normalize clamps out-of-range values to their limits and returns a
// warning per adjustment. It never fails.
func (c *Config) Normalize() []string {
	var warnings []string
	clamp := func(name string, v *int, lo, hi int) {
		switch {
		case *v < lo:
			warnings = append(warnings, fmt.Sprintf("%s = %d below %d, using %d", name, *v, lo, lo))
			*v = lo
		case *v > hi:
			warnings = append(warnings, fmt.Sprintf("%s = %d above %d, using %d", name, *v, hi, hi))
			*v = hi
		}
	}
	clamp("idle_trigger.idle_minutes", &c.IdleTrigger.IdleMinutes, 1, 1440)
	clamp("cooldown.minutes", &c.Cooldown.Minutes, 0, 1440)
	clamp("sync.wait_minutes", &c.Sync.WaitMinutes, 0, 120)
	clamp("sync.max_retry_attempts", &c.Sync.MaxRetryAttempts, 0, 10)

	def := DefaultConfig()
	fixDur := func(name string, v *string, fallback string, floor time.Duration) {
		d, err := time.ParseDuration(strings.TrimSpace(*v))
		switch {
		case err != nil:
			warnings = append(warnings, fmt.Sprintf("%s = %q is not a duration, using %s", name, *v, fallback))
			*v = fallback
		case d < floor:
			warnings = append(warnings, fmt.Sprintf("%s = %s below %s, using %s", name, d, floor, floor))
			*v = floor.String()
		}
	}
	fixDur("scheduler.poll_interval", &c.Scheduler.PollInterval, def.Scheduler.PollInterval, time.Second)
	fixDur("scheduler.disabled_interval", &c.Scheduler.DisabledInterval, def.Scheduler.DisabledInterval, time.Second)
	fixDur("scheduler.error_backoff", &c.Scheduler.ErrorBackoff, def.Scheduler.ErrorBackoff, time.Second)
	fixDur("sync.progress_interval", &c.Sync.ProgressInterval, def.Sync.ProgressInterval, time.Second)
	fixDur("sync.chat_stop_settle", &c.Sync.ChatStopSettle, def.Sync.ChatStopSettle, 0)
	fixDur("sync.sync_stop_settle", &c.Sync.SyncStopSettle, def.Sync.SyncStopSettle, 0)
	fixDur("sync.sync_start_settle", &c.Sync.SyncStartSettle, def.Sync.SyncStartSettle, 0)
	fixDur("sync.stable_timeout", &c.Sync.StableTimeout, def.Sync.StableTimeout, 0)

	if _, err := domain.ParseTimeOfDay(c.ScheduledTrigger.Time); err != nil {
		warnings = append(warnings, fmt.Sprintf("scheduled_trigger.time = %q is not HH:MM, using %s",
			c.ScheduledTrigger.Time, def.ScheduledTrigger.Time))
		c.ScheduledTrigger.Time = def.ScheduledTrigger.Time
	}
	if _, bad := parseDays(c.ScheduledTrigger.Days); len(bad) > 0 {
		warnings = append(warnings, fmt.Sprintf("scheduled_trigger.days: ignoring %v", bad))
	}

	if c.API.Port <= 0 || c.API.Port > 65535 {
		warnings = append(warnings, fmt.Sprintf("api.port = %d invalid, using %d", c.API.Port, def.API.Port))
		c.API.Port = def.API.Port
	}
	if c.API.Host == "" {
		c.API.Host = def.API.Host
	}
	if len(c.Apps.Chat.Images) == 0 {
		warnings = append(warnings, "apps.chat.images empty, using defaults")
		c.Apps.Chat = def.Apps.Chat
	}
	if len(c.Apps.Sync.Images) == 0 {
		warnings = append(warnings, "apps.sync.images empty, using defaults")
		c.Apps.Sync = def.Apps.Sync
	}
	return warnings
}

// parseDays returns the configured weekdays (nil = daily) plus any names
// it could not understand.
func parseDays(names []string) (days []time.Weekday, bad []string) {
	seen := make(map[time.Weekday]bool)
	for _, n := range names {
		if strings.EqualFold(strings.TrimSpace(n), "daily") {
			return nil, bad
		}
		d, ok := domain.ParseWeekday(n)
		if !ok {
			bad = append(bad, n)
			continue
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	return days, bad
}

// ─── Conversions ────────────────────────────────────────────────────────────

// TriggerConfig converts to the scheduler's snapshot type.
func (c Config) TriggerConfig() domain.TriggerConfig {
	def := DefaultConfig()

	at, err := domain.ParseTimeOfDay(c.ScheduledTrigger.Time)
	if err != nil {
		at, _ = domain.ParseTimeOfDay(def.ScheduledTrigger.Time)
	}
	days, _ := parseDays(c.ScheduledTrigger.Days)

	return domain.TriggerConfig{
		IdleTriggerEnabled:      c.IdleTrigger.Enabled,
		IdleThreshold:           time.Duration(c.IdleTrigger.IdleMinutes) * time.Minute,
		ScheduledTriggerEnabled: c.ScheduledTrigger.Enabled,
		ScheduledTime:           at,
		ScheduledDays:           days,
		Cooldown:                time.Duration(c.Cooldown.Minutes) * time.Minute,
		SyncWait:                time.Duration(c.Sync.WaitMinutes) * time.Minute,
		MaxRetryAttempts:        c.Sync.MaxRetryAttempts,
		PollInterval:            parseDuration(c.Scheduler.PollInterval, 5*time.Second),
		DisabledInterval:        parseDuration(c.Scheduler.DisabledInterval, 30*time.Second),
		ErrorBackoff:            parseDuration(c.Scheduler.ErrorBackoff, 60*time.Second),
	}
}

// OrchestratorSettings converts to the orchestrator's per-run settings.
func (c Config) OrchestratorSettings() orchestrator.Settings {
	return orchestrator.Settings{
		SyncWait:         time.Duration(c.Sync.WaitMinutes) * time.Minute,
		ProgressInterval: parseDuration(c.Sync.ProgressInterval, 10*time.Second),
		ChatStopSettle:   parseDuration(c.Sync.ChatStopSettle, 2*time.Second),
		SyncStopSettle:   parseDuration(c.Sync.SyncStopSettle, 3*time.Second),
		SyncStartSettle:  parseDuration(c.Sync.SyncStartSettle, 3*time.Second),
		StableTimeout:    parseDuration(c.Sync.StableTimeout, 30*time.Second),
		DryRun:           c.Sync.DryRun,
		ChatName:         c.Apps.Chat.Name,
		SyncName:         c.Apps.Sync.Name,
	}
}

// RetryPolicy converts to the retry layer's policy.
func (c Config) RetryPolicy() orchestrator.RetryPolicy {
	p := orchestrator.DefaultRetryPolicy()
	p.Enabled = c.Sync.RetryFailedRuns
	p.MaxAttempts = c.Sync.MaxRetryAttempts
	return p
}

// ProcessConfig converts to the process controller's configuration.
func (c Config) ProcessConfig() process.Config {
	cfg := process.DefaultTimings()
	cfg.Apps = map[domain.AppID]process.AppSpec{
		domain.AppChat: process.AppSpec(c.Apps.Chat),
		domain.AppSync: process.AppSpec(c.Apps.Sync),
	}
	return cfg
}

// parseDuration parses a Go duration string, returning fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ─── Paths ──────────────────────────────────────────────────────────────────

// syncfixHome returns the syncfix data directory.
func syncfixHome() string {
	if env := os.Getenv("SYNCFIX_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".syncfix")
}

// SyncfixHome is exported for use by other packages.
func SyncfixHome() string {
	return syncfixHome()
}

// ConfigPath returns the config file location.
func ConfigPath() string {
	return filepath.Join(syncfixHome(), "config.toml")
}
