package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS item (
	id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_item_updated_at ON item(updated_at);
`

// SQLite is a Cache backed by a local sqlite file. Timestamps are stored
// as unix milliseconds.
type SQLite struct {
	db    *sql.DB
	locks *keyedMutex
	now   func() time.Time
}

// NewSQLite opens (creating if needed) the database at dbPath.
func NewSQLite(dbPath string, opts ...Option) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	o := buildOptions(opts)
	return &SQLite{
		db:    db,
		locks: newKeyedMutex(),
		now:   o.now,
	}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return &Error{Op: "init", Err: err}
	}
	return nil
}

func (s *SQLite) Upsert(ctx context.Context, item types.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return &Error{Op: "upsert", ID: item.ID, Err: err}
	}

	unlock := s.locks.Lock(item.ID)
	defer unlock()

	now := s.now()
	created := item.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO item (id, created_at, updated_at, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			updated_at = excluded.updated_at,
			payload = excluded.payload
	`, item.ID, created.UnixMilli(), now.UnixMilli(), string(payload))
	if err != nil {
		return &Error{Op: "upsert", ID: item.ID, Err: err}
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id string) (*types.Item, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM item WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "get", ID: id, Err: err}
	}

	var item types.Item
	if err := json.Unmarshal([]byte(payload), &item); err != nil {
		return nil, &Error{Op: "get", ID: id, Err: err}
	}
	return &item, nil
}

func (s *SQLite) EvictOlderThan(ctx context.Context, days int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM item WHERE updated_at < ?`,
		cutoff(s.now(), days).UnixMilli(),
	)
	if err != nil {
		return 0, &Error{Op: "evict", Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, &Error{Op: "evict", Err: err}
	}
	return n, nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]types.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM item ORDER BY updated_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, &Error{Op: "recent", Err: err}
	}
	defer rows.Close()

	items, err := scanItems(rows)
	if err != nil {
		return nil, &Error{Op: "recent", Err: err}
	}
	return items, nil
}

func scanItems(rows *sql.Rows) ([]types.Item, error) {
	items := []types.Item{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var item types.Item
		if err := json.Unmarshal([]byte(payload), &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
