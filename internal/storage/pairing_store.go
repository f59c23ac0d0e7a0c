package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fernwall/screentime/internal/domain"
)

// PairingStoreImpl implements domain.PairingStore.
type PairingStoreImpl struct {
	db *DB
}

// NewPairingStore creates a pairing token store.
func NewPairingStore(db *DB) *PairingStoreImpl {
	return &PairingStoreImpl{db: db}
}

// CreateToken inserts a fresh token.
func (s *PairingStoreImpl) CreateToken(ctx context.Context, t domain.PairingToken) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pairing_tokens (token, expires_at, consumed, created_at)
		VALUES (?, ?, 0, ?)`,
		t.Token, t.ExpiresAt.Unix(), t.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert pairing token: %w", err)
	}
	return nil
}

// Find returns the token, or nil when unknown.
func (s *PairingStoreImpl) Find(ctx context.Context, token string) (*domain.PairingToken, error) {
	t := &domain.PairingToken{}
	var expiresAt, createdAt int64
	var consumed int
	err := s.db.QueryRowContext(ctx, `
		SELECT token, expires_at, consumed, created_at
		FROM pairing_tokens WHERE token = ?`, token,
	).Scan(&t.Token, &expiresAt, &consumed, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find pairing token: %w", err)
	}
	t.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.Consumed = consumed == 1
	return t, nil
}

// Consume marks the token consumed exactly once. The conditional
// UPDATE inside the transaction is the single-use guarantee: two
// concurrent pair requests cannot both see zero rows affected.
func (s *PairingStoreImpl) Consume(ctx context.Context, token string, now time.Time) (*domain.PairingToken, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin pairing tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE pairing_tokens SET consumed = 1
		WHERE token = ? AND consumed = 0 AND expires_at > ?`,
		token, now.Unix())
	if err != nil {
		return nil, fmt.Errorf("consume pairing token: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("consume pairing token: %w", err)
	}
	if affected == 0 {
		// unknown, expired, or already consumed: all the same result
		return nil, domain.ErrUnauthorized
	}

	t := &domain.PairingToken{Token: token, Consumed: true}
	var expiresAt, createdAt int64
	if err := tx.QueryRowContext(ctx, `
		SELECT expires_at, created_at FROM pairing_tokens WHERE token = ?`, token,
	).Scan(&expiresAt, &createdAt); err != nil {
		return nil, fmt.Errorf("read consumed token: %w", err)
	}
	t.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	t.CreatedAt = time.Unix(createdAt, 0).UTC()

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit token consume: %w", err)
	}
	return t, nil
}

// Ensure PairingStoreImpl implements domain.PairingStore.
var _ domain.PairingStore = (*PairingStoreImpl)(nil)
