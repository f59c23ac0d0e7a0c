// Package storage implements the backend's relational stores over
// SQLite. Usage rows are append-only; aggregation is recomputed from
// rows per request, so no cross-request locking is needed beyond
// ordinary transactions.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	// Ensure sqlcipher driver is registered. Without a key pragma it opens
	// plain SQLite databases.
	_ "github.com/mutecomm/go-sqlcipher/v4"
)

// DB wraps the backend database handle.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS devices (
		device_id TEXT PRIMARY KEY,
		api_key TEXT NOT NULL,
		owner_id TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		device_type TEXT NOT NULL DEFAULT '',
		mac_address TEXT NOT NULL DEFAULT '',
		paired_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS usage_logs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		window_title TEXT NOT NULL DEFAULT '',
		exe_path TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		is_focused INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_usage_logs_device_ts
		ON usage_logs (device_id, timestamp);

	CREATE TABLE IF NOT EXISTS rules (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		rule_type TEXT NOT NULL,
		app_name TEXT NOT NULL DEFAULT '',
		time_limit_minutes INTEGER NOT NULL DEFAULT 0,
		enabled INTEGER NOT NULL DEFAULT 1
	);
	CREATE INDEX IF NOT EXISTS idx_rules_device ON rules (device_id);

	CREATE TABLE IF NOT EXISTS pairing_tokens (
		token TEXT PRIMARY KEY,
		expires_at INTEGER NOT NULL,
		consumed INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}
