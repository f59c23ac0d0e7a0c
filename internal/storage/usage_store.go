package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/fernwall/screentime/internal/domain"
)

// UsageLogStoreImpl implements domain.UsageLogStore over the
// append-only usage_logs table.
type UsageLogStoreImpl struct {
	db *DB
}

// NewUsageLogStore creates a usage log store.
func NewUsageLogStore(db *DB) *UsageLogStoreImpl {
	return &UsageLogStoreImpl{db: db}
}

// AppendBatch inserts all entries in one transaction: either the whole
// batch lands or none of it does.
func (s *UsageLogStoreImpl) AppendBatch(ctx context.Context, entries []domain.UsageLogEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin usage tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO usage_logs (device_id, app_name, window_title, exe_path, timestamp, duration_seconds, is_focused)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		focused := 0
		if e.IsFocused {
			focused = 1
		}
		if _, err := stmt.ExecContext(ctx, e.DeviceID, e.AppName, e.WindowTitle,
			e.ExePath, e.Timestamp.Unix(), e.DurationSeconds, focused); err != nil {
			return fmt.Errorf("insert usage row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit usage batch: %w", err)
	}
	return nil
}

// ForDay returns all entries whose timestamp falls on the given UTC
// day, ascending. Rows are returned regardless of insertion order.
func (s *UsageLogStoreImpl) ForDay(ctx context.Context, deviceID string, day time.Time) ([]domain.UsageLogEntry, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := s.db.QueryContext(ctx, `
		SELECT device_id, app_name, window_title, exe_path, timestamp, duration_seconds, is_focused
		FROM usage_logs
		WHERE device_id = ? AND timestamp >= ? AND timestamp < ?
		ORDER BY timestamp ASC`,
		deviceID, dayStart.Unix(), dayEnd.Unix())
	if err != nil {
		return nil, fmt.Errorf("select usage rows: %w", err)
	}
	defer rows.Close()

	var entries []domain.UsageLogEntry
	for rows.Next() {
		var e domain.UsageLogEntry
		var ts int64
		var focused int
		if err := rows.Scan(&e.DeviceID, &e.AppName, &e.WindowTitle, &e.ExePath,
			&ts, &e.DurationSeconds, &focused); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		e.Timestamp = time.Unix(ts, 0).UTC()
		e.IsFocused = focused == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage rows: %w", err)
	}
	return entries, nil
}

// Ensure UsageLogStoreImpl implements domain.UsageLogStore.
var _ domain.UsageLogStore = (*UsageLogStoreImpl)(nil)
