package offline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// DefaultQueueKey is the key the queue is stored under.
const DefaultQueueKey = "offline_trips"

// SQLiteStore keeps the queue as one row of a key/value table.
type SQLiteStore struct {
	db  *sql.DB
	key string
}

// OpenSQLiteStore opens (or creates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening queue database: %w", err)
	}
	// One writer; the queue is read and written whole.
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating kv table: %w", err)
	}

	return &SQLiteStore{db: db, key: DefaultQueueKey}, nil
}

// Load reads the queue row. A missing row is an empty queue.
func (s *SQLiteStore) Load(ctx context.Context) ([]PendingTrip, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, s.key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading queue: %w", err)
	}
	return decodeQueue([]byte(value))
}

// Save upserts the queue row.
func (s *SQLiteStore) Save(ctx context.Context, items []PendingTrip) error {
	b, err := encodeQueue(items)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.key, string(b))
	if err != nil {
		return fmt.Errorf("writing queue: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
