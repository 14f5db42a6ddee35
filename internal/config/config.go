package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Config holds application configuration.
type Config struct {
	// DefaultGraceMinutes is the on-time tolerance applied to schedules
	// that do not set their own grace window.
	DefaultGraceMinutes int `json:"default_grace_minutes"`

	// CollisionWindowMinutes flags postponements landing within this many
	// minutes of another due dose.
	CollisionWindowMinutes int `json:"collision_window_minutes"`

	// PostponeMinMinutes / PostponeMaxMinutes bound snooze durations.
	PostponeMinMinutes int `json:"postpone_min_minutes"`
	PostponeMaxMinutes int `json:"postpone_max_minutes"`

	// UndoWindowMinutes bounds how long after logging an action it can be
	// reversed.
	UndoWindowMinutes int `json:"undo_window_minutes"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// If set to 1, all database access is serialized (reduces "database is locked" errors).
	// 0 means use sql.DB default (unlimited). Only set if you experience contention.
	DBMaxOpenConns int `json:"db_max_open_conns,omitempty"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	// 0 means use sql.DB default. Typically set equal to DBMaxOpenConns.
	DBMaxIdleConns int `json:"db_max_idle_conns,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `json:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		DefaultGraceMinutes:    60,
		CollisionWindowMinutes: 30,
		PostponeMinMinutes:     5,
		PostponeMaxMinutes:     240,
		UndoWindowMinutes:      10,
	}
}

// Load loads configuration from baseDir/config.json.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.medtrack.
func Load(baseDir string) (*Config, error) {
	configPath := filepath.Join(baseDir, "config.json")

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	// Zero-valued timing fields fall back to defaults so a sparse config
	// file never disables grace or collision checks by accident.
	defaults := DefaultConfig()
	if cfg.DefaultGraceMinutes <= 0 {
		cfg.DefaultGraceMinutes = defaults.DefaultGraceMinutes
	}
	if cfg.CollisionWindowMinutes <= 0 {
		cfg.CollisionWindowMinutes = defaults.CollisionWindowMinutes
	}
	if cfg.PostponeMinMinutes <= 0 {
		cfg.PostponeMinMinutes = defaults.PostponeMinMinutes
	}
	if cfg.PostponeMaxMinutes <= 0 {
		cfg.PostponeMaxMinutes = defaults.PostponeMaxMinutes
	}
	if cfg.UndoWindowMinutes <= 0 {
		cfg.UndoWindowMinutes = defaults.UndoWindowMinutes
	}

	return cfg, nil
}

// Save writes configuration to baseDir/config.json with restricted permissions.
func Save(baseDir string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(baseDir, "config.json"), data, 0600)
}
