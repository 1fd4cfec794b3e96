package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/hpungsan/presetvault/internal/config"
)

// CurrentSchemaVersion is the latest schema version.
// Bump this when adding migrations.
const CurrentSchemaVersion = 1

// FileName is the database file inside the data root.
const FileName = "presetvault.db"

// Init initializes the SQLite database at baseDir/presetvault.db.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.presetvault.
func Init(baseDir string) (*sql.DB, error) {
	// Create base directory with restricted permissions
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	exportsDir := filepath.Join(baseDir, "exports")
	if err := os.MkdirAll(exportsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create exports directory: %w", err)
	}
	_ = os.Chmod(exportsDir, 0700)

	// Pragmas in the connection string apply to every pooled connection
	dbPath := filepath.Join(baseDir, FileName)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
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

	// Migration 0 -> 1: Initial schema
	if version < 1 {
		schema := `
		CREATE TABLE IF NOT EXISTS presets (
		  id            TEXT PRIMARY KEY,
		  name          TEXT NOT NULL,
		  author        TEXT NOT NULL,
		  type          TEXT NOT NULL,
		  tags_json     TEXT,
		  is_favorite   INTEGER NOT NULL DEFAULT 0,
		  version       INTEGER NOT NULL DEFAULT 1,
		  custom_colors INTEGER,
		  created_at    INTEGER NOT NULL,
		  modified_at   INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_presets_modified
		ON presets(modified_at DESC);

		CREATE TABLE IF NOT EXISTS favorites (
		  id  TEXT PRIMARY KEY,
		  seq INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS recent (
		  id  TEXT PRIMARY KEY,
		  seq INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_recent_seq
		ON recent(seq DESC);

		CREATE TABLE IF NOT EXISTS collections (
		  id         TEXT PRIMARY KEY,
		  name       TEXT NOT NULL,
		  created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS collection_items (
		  collection_id TEXT NOT NULL,
		  preset_id     TEXT NOT NULL,
		  position      INTEGER NOT NULL,
		  PRIMARY KEY (collection_id, preset_id)
		);

		CREATE TABLE IF NOT EXISTS flags (
		  key   TEXT PRIMARY KEY,
		  value INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS seeded_presets (
		  id        TEXT PRIMARY KEY,
		  seeded_at INTEGER NOT NULL
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
