package reporter

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Ensure sqlcipher driver is registered.
	_ "github.com/mutecomm/go-sqlcipher/v4"

	"github.com/fernwall/screentime/internal/domain"
)

const spillDBName = "spill.db"

// SpillStore persists undelivered batches in an encrypted SQLite
// database so no usage data is lost across agent restarts. The
// SQLCipher passphrase is derived from the device's api key.
type SpillStore struct {
	db     *sql.DB
	dbPath string
}

// NewSpillStore opens (or creates) the spill database under dataDir.
func NewSpillStore(dataDir string, key []byte) (*SpillStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, spillDBName)
	keyHex := hex.EncodeToString(key)

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", dbPath, keyHex)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open spill database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to spill database: %w", err)
	}

	s := &SpillStore{db: db, dbPath: dbPath}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SpillStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS spill (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		device_id TEXT NOT NULL,
		app_name TEXT NOT NULL,
		window_title TEXT NOT NULL DEFAULT '',
		exe_path TEXT NOT NULL DEFAULT '',
		timestamp INTEGER NOT NULL,
		duration_seconds INTEGER NOT NULL,
		is_focused INTEGER NOT NULL DEFAULT 1
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Push persists entries for later delivery, all in one transaction.
func (s *SpillStore) Push(entries []domain.UsageLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin spill tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO spill (device_id, app_name, window_title, exe_path, timestamp, duration_seconds, is_focused)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare spill insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		focused := 0
		if e.IsFocused {
			focused = 1
		}
		if _, err := stmt.Exec(e.DeviceID, e.AppName, e.WindowTitle, e.ExePath,
			e.Timestamp.Unix(), e.DurationSeconds, focused); err != nil {
			return fmt.Errorf("insert spill row: %w", err)
		}
	}
	return tx.Commit()
}

// Peek returns everything currently spilled, oldest first, without
// removing it. Rows leave the table only through Drop, after the
// caller has confirmed delivery.
func (s *SpillStore) Peek() ([]domain.UsageLogEntry, error) {
	rows, err := s.db.Query(`
		SELECT device_id, app_name, window_title, exe_path, timestamp, duration_seconds, is_focused
		FROM spill ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("select spill rows: %w", err)
	}
	defer rows.Close()

	var entries []domain.UsageLogEntry
	for rows.Next() {
		var e domain.UsageLogEntry
		var ts int64
		var focused int
		if err := rows.Scan(&e.DeviceID, &e.AppName, &e.WindowTitle, &e.ExePath,
			&ts, &e.DurationSeconds, &focused); err != nil {
			return nil, fmt.Errorf("scan spill row: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		e.IsFocused = focused == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate spill rows: %w", err)
	}
	return entries, nil
}

// Drop removes the n oldest spilled entries.
func (s *SpillStore) Drop(n int) error {
	if n <= 0 {
		return nil
	}
	_, err := s.db.Exec(`
		DELETE FROM spill WHERE id IN (
			SELECT id FROM spill ORDER BY id ASC LIMIT ?)`, n)
	if err != nil {
		return fmt.Errorf("drop spill rows: %w", err)
	}
	return nil
}

// Len returns the number of spilled entries.
func (s *SpillStore) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM spill`).Scan(&n)
	return n, err
}

// Close releases the underlying database.
func (s *SpillStore) Close() error {
	return s.db.Close()
}

// Ensure SpillStore implements domain.SpillQueue.
var _ domain.SpillQueue = (*SpillStore)(nil)
