package storage

import (
	"context"
	"fmt"

	"github.com/fernwall/screentime/internal/domain"
)

// RuleStoreImpl implements domain.RuleStore. Rules are written by the
// parent-facing admin surface; this core only reads them.
type RuleStoreImpl struct {
	db *DB
}

// NewRuleStore creates a rule store.
func NewRuleStore(db *DB) *RuleStoreImpl {
	return &RuleStoreImpl{db: db}
}

// EnabledForDevice returns all enabled rules for the device.
func (s *RuleStoreImpl) EnabledForDevice(ctx context.Context, deviceID string) ([]domain.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, rule_type, app_name, time_limit_minutes, enabled
		FROM rules
		WHERE device_id = ? AND enabled = 1
		ORDER BY id ASC`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("select rules: %w", err)
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		var r domain.Rule
		var enabled int
		if err := rows.Scan(&r.ID, &r.DeviceID, &r.RuleType, &r.AppName,
			&r.TimeLimitMinutes, &enabled); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Enabled = enabled == 1
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return out, nil
}

// Insert adds a rule. Used by tests and seed tooling; the production
// write path is the admin surface outside this repo.
func (s *RuleStoreImpl) Insert(ctx context.Context, r domain.Rule) (int64, error) {
	enabled := 0
	if r.Enabled {
		enabled = 1
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (device_id, rule_type, app_name, time_limit_minutes, enabled)
		VALUES (?, ?, ?, ?, ?)`,
		r.DeviceID, string(r.RuleType), r.AppName, r.TimeLimitMinutes, enabled)
	if err != nil {
		return 0, fmt.Errorf("insert rule: %w", err)
	}
	return res.LastInsertId()
}

// Ensure RuleStoreImpl implements domain.RuleStore.
var _ domain.RuleStore = (*RuleStoreImpl)(nil)
