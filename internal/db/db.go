package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"medtrack/internal/config"
	_ "modernc.org/sqlite"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// Init initializes the SQLite database at baseDir/medtrack.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.medtrack.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	// Open database with pragmas in connection string (applies to all connections)
	dbPath := filepath.Join(baseDir, "medtrack.db")
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify WAL mode is active
	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	// Run migrations (this creates the file if it doesn't exist)
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
// Call after Init if you need to tune pool behavior for contention.
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies schema migrations based on user_version.
func migrate(db *sql.DB) error {
	version, err := GetUserVersion(db)
	if err != nil {
		return err
	}

	// Migration 0 -> 1: Initial schema (v1)
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS medications (
		  id            TEXT PRIMARY KEY,
		  name_raw      TEXT NOT NULL,
		  name_norm     TEXT NOT NULL,
		  dose_amount   REAL NOT NULL,
		  dose_unit     TEXT NOT NULL,
		  notes         TEXT,
		  created_at    INTEGER NOT NULL,
		  updated_at    INTEGER NOT NULL,
		  deleted_at    INTEGER
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_medications_name_norm
		ON medications(name_norm)
		WHERE deleted_at IS NULL;

		CREATE TABLE IF NOT EXISTS schedules (
		  id                TEXT PRIMARY KEY,
		  item_id           TEXT NOT NULL REFERENCES medications(id),
		  scheme_kind       TEXT NOT NULL,
		  scheme_json       TEXT NOT NULL,
		  anchor_type       TEXT,
		  anchor_offset_min INTEGER,
		  start_date        TEXT NOT NULL,
		  end_date          TEXT,
		  grace_minutes     INTEGER NOT NULL,
		  time_policy       TEXT NOT NULL,
		  paused            INTEGER NOT NULL DEFAULT 0,
		  created_at        INTEGER NOT NULL,
		  updated_at        INTEGER NOT NULL,
		  deleted_at        INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_schedules_item
		ON schedules(item_id)
		WHERE deleted_at IS NULL;

		CREATE TABLE IF NOT EXISTS dose_log (
		  id            TEXT PRIMARY KEY,
		  item_id       TEXT NOT NULL,
		  schedule_id   TEXT,
		  scheduled_for INTEGER,
		  action        TEXT NOT NULL,
		  reason        TEXT,
		  note          TEXT,
		  snooze_until  INTEGER,
		  logged_at     INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_dose_log_item_logged
		ON dose_log(item_id, logged_at DESC);

		CREATE INDEX IF NOT EXISTS idx_dose_log_action_slot
		ON dose_log(action, scheduled_for);

		CREATE TABLE IF NOT EXISTS inventory (
		  item_id         TEXT PRIMARY KEY REFERENCES medications(id),
		  remaining_units REAL NOT NULL,
		  low_threshold   REAL NOT NULL DEFAULT 0,
		  unit_label      TEXT NOT NULL DEFAULT '',
		  updated_at      INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS anchors (
		  anchor    TEXT PRIMARY KEY,
		  base_time TEXT NOT NULL
		);
		`
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("migration 1 failed: %w", err)
		}
		if err := SetUserVersion(db, 1); err != nil {
			return err
		}
	}

	// Future migrations go here:
	// if version < 2 { ... }

	return nil
}

// verifyWALMode checks that WAL mode is active (set via connection string).
func verifyWALMode(db *sql.DB) error {
	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

// GetUserVersion returns the current schema version (user_version pragma).
func GetUserVersion(db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRow("PRAGMA user_version;").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get user_version: %w", err)
	}
	return version, nil
}

// SetUserVersion sets the schema version (user_version pragma).
func SetUserVersion(db *sql.DB, version int) error {
	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version=%d", version))
	if err != nil {
		return fmt.Errorf("failed to set user_version: %w", err)
	}
	return nil
}
