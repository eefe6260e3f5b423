package shop

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"
)

// SnapshotRepo persists each store's full state as an independent blob under a
// distinct key, the way the browser original used one localStorage entry per
// store. There is deliberately no cross-key transaction.
type SnapshotRepo interface {
	Load(ctx context.Context, key string) ([]byte, bool, error)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
}

// Persistence keys. Per-session stores append "/<session id>".
const (
	cartStorageKey      = "cart-storage"
	favoritesStorageKey = "favorites-storage"
	userStorageKey      = "user-storage"
	ordersStorageKey    = "orders-storage"
)

// SQLiteSnapshots stores snapshots in a single key/value table.
type SQLiteSnapshots struct {
	db *sql.DB
}

// NewSQLiteSnapshots constructs the durable snapshot repository.
func NewSQLiteSnapshots(db *sql.DB) *SQLiteSnapshots {
	return &SQLiteSnapshots{db: db}
}

// Init applies the snapshot schema.
func (s *SQLiteSnapshots) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS snapshots (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`)
	if err != nil {
		return fmt.Errorf("apply snapshot schema: %w", err)
	}
	return nil
}

func (s *SQLiteSnapshots) Load(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM snapshots WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	return []byte(value), true, nil
}

func (s *SQLiteSnapshots) Save(ctx context.Context, key string, blob []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots(key, value, updated_at) VALUES(?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(blob), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteSnapshots) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", key, err)
	}
	return nil
}

// MemorySnapshots is the in-memory repository used in tests and as a
// no-durability fallback.
type MemorySnapshots struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemorySnapshots() *MemorySnapshots {
	return &MemorySnapshots{blobs: make(map[string][]byte)}
}

func (m *MemorySnapshots) Load(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	blob, ok := m.blobs[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(blob))
	copy(cp, blob)
	return cp, true, nil
}

func (m *MemorySnapshots) Save(_ context.Context, key string, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(blob))
	copy(cp, blob)
	m.blobs[key] = cp
	return nil
}

func (m *MemorySnapshots) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
	return nil
}
