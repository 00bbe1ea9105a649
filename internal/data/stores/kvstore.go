// Package stores implements persistence on top of the SQLite database.
package stores

import (
	"context"
	"fmt"
	"time"

	"github.com/colonyops/lens/internal/data/db"
)

// KVStore is a key/value table of raw byte values.
type KVStore struct {
	db *db.DB
}

// NewKVStore creates a new SQLite-backed KV store.
func NewKVStore(db *db.DB) *KVStore {
	return &KVStore{db: db}
}

// GetRaw returns the stored bytes for key. Returns an error wrapping
// sql.ErrNoRows if the key does not exist.
func (s *KVStore) GetRaw(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.Conn().
		QueryRowContext(ctx, "SELECT value FROM kv_store WHERE key = ?", key).
		Scan(&value)
	if err != nil {
		return nil, fmt.Errorf("kv get %q: %w", key, err)
	}
	return value, nil
}

// SetRaw stores data under key, replacing any previous value.
func (s *KVStore) SetRaw(ctx context.Context, key string, data []byte) error {
	now := time.Now().UnixNano()
	_, err := s.db.Conn().ExecContext(ctx, `
		INSERT INTO kv_store (key, value, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, data, now, now)
	if err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}
