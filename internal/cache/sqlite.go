package cache

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// SQLiteStore persists cache entries in the shared database so dedup
// survives restarts and applies across instances.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps the shared database handle. The cache_entries table
// is created by the storage package's migrations.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var e Entry
	var createdMs int64
	err := s.db.QueryRowContext(ctx,
		"SELECT provider_id, value, created_at FROM cache_entries WHERE key = ?", key,
	).Scan(&e.ProviderID, &e.Value, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	e.CreatedAt = time.UnixMilli(createdMs)
	return e, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, provider_id, value, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET provider_id=excluded.provider_id, value=excluded.value, created_at=excluded.created_at`,
		key, e.ProviderID, e.Value, e.CreatedAt.UnixMilli(),
	)
	return err
}

func (s *SQLiteStore) Purge(ctx context.Context, olderThan time.Time) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM cache_entries WHERE created_at < ?", olderThan.UnixMilli())
	return err
}
