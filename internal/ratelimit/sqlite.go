package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLiteStore implements CounterStore on the shared persistent store. The
// increment-or-reset is a single UPSERT, so it stays correct under multiple
// concurrent processes sharing one database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps the shared database handle. The rate_counters table
// is created by the storage package's migrations.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Incr(ctx context.Context, key string, now time.Time, window time.Duration) (int, time.Time, error) {
	nowMs := now.UnixMilli()
	windowMs := window.Milliseconds()

	var count int
	var startMs int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_counters (key, window_start, count) VALUES (?1, ?2, 1)
		ON CONFLICT(key) DO UPDATE SET
			count        = CASE WHEN rate_counters.window_start + ?3 <= ?2 THEN 1 ELSE rate_counters.count + 1 END,
			window_start = CASE WHEN rate_counters.window_start + ?3 <= ?2 THEN ?2 ELSE rate_counters.window_start END
		RETURNING count, window_start`,
		key, nowMs, windowMs,
	).Scan(&count, &startMs)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing counter %q: %w", key, err)
	}
	return count, time.UnixMilli(startMs), nil
}
