package storage

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"time"

	"github.com/fernwall/screentime/internal/domain"
)

// DeviceStoreImpl implements domain.DeviceStore.
type DeviceStoreImpl struct {
	db *DB
}

// NewDeviceStore creates a device store.
func NewDeviceStore(db *DB) *DeviceStoreImpl {
	return &DeviceStoreImpl{db: db}
}

// Upsert inserts a new device, or re-pairs an existing one. The
// device_id row key never changes; re-pairing rotates the api_key and
// refreshes the display metadata.
func (s *DeviceStoreImpl) Upsert(ctx context.Context, d domain.Device) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (device_id, api_key, owner_id, name, device_type, mac_address, paired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			api_key = excluded.api_key,
			name = excluded.name,
			device_type = excluded.device_type,
			mac_address = excluded.mac_address,
			paired_at = excluded.paired_at`,
		d.DeviceID, d.APIKey, d.OwnerID, d.Name, d.DeviceType, d.MACAddress, d.PairedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert device: %w", err)
	}
	return nil
}

// FindByID returns the device, or nil when not found.
func (s *DeviceStoreImpl) FindByID(ctx context.Context, deviceID string) (*domain.Device, error) {
	d := &domain.Device{}
	var pairedAt int64
	err := s.db.QueryRowContext(ctx, `
		SELECT device_id, api_key, owner_id, name, device_type, mac_address, paired_at
		FROM devices WHERE device_id = ?`, deviceID,
	).Scan(&d.DeviceID, &d.APIKey, &d.OwnerID, &d.Name, &d.DeviceType, &d.MACAddress, &pairedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find device: %w", err)
	}
	d.PairedAt = time.Unix(pairedAt, 0).UTC()
	return d, nil
}

// Authenticate returns the device when the credentials match. The
// api key comparison is constant-time, and the error never says
// whether the device id or the key was wrong.
func (s *DeviceStoreImpl) Authenticate(ctx context.Context, deviceID, apiKey string) (*domain.Device, error) {
	d, err := s.FindByID(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, domain.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(d.APIKey), []byte(apiKey)) != 1 {
		return nil, domain.ErrUnauthorized
	}
	return d, nil
}

// Ensure DeviceStoreImpl implements domain.DeviceStore.
var _ domain.DeviceStore = (*DeviceStoreImpl)(nil)
