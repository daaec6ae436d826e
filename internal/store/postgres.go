package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS item (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_item_updated_at ON item(updated_at)`,
}

// Postgres is a Cache backed by a pgx connection pool.
type Postgres struct {
	pool  *pgxpool.Pool
	locks *keyedMutex
	now   func() time.Time
}

// NewPostgres connects to the database described by connStr.
func NewPostgres(ctx context.Context, connStr string, opts ...Option) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	o := buildOptions(opts)
	return &Postgres{
		pool:  pool,
		locks: newKeyedMutex(),
		now:   o.now,
	}, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func (p *Postgres) Init(ctx context.Context) error {
	for _, q := range postgresSchema {
		if _, err := p.pool.Exec(ctx, q); err != nil {
			return &Error{Op: "init", Err: err}
		}
	}
	return nil
}

func (p *Postgres) Upsert(ctx context.Context, item types.Item) error {
	payload, err := json.Marshal(item)
	if err != nil {
		return &Error{Op: "upsert", ID: item.ID, Err: err}
	}

	unlock := p.locks.Lock(item.ID)
	defer unlock()

	now := p.now()
	created := item.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err = p.pool.Exec(ctx, `
		INSERT INTO item (id, created_at, updated_at, payload)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			updated_at = EXCLUDED.updated_at,
			payload = EXCLUDED.payload`,
		item.ID, created, now, payload)
	if err != nil {
		return &Error{Op: "upsert", ID: item.ID, Err: err}
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id string) (*types.Item, error) {
	var payload []byte
	err := p.pool.QueryRow(ctx, `SELECT payload FROM item WHERE id = $1`, id).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &Error{Op: "get", ID: id, Err: err}
	}

	var item types.Item
	if err := json.Unmarshal(payload, &item); err != nil {
		return nil, &Error{Op: "get", ID: id, Err: err}
	}
	return &item, nil
}

func (p *Postgres) EvictOlderThan(ctx context.Context, days int) (int64, error) {
	tag, err := p.pool.Exec(ctx, `DELETE FROM item WHERE updated_at < $1`, cutoff(p.now(), days))
	if err != nil {
		return 0, &Error{Op: "evict", Err: err}
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]types.Item, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT payload FROM item ORDER BY updated_at DESC, id LIMIT $1`, limit)
	if err != nil {
		return nil, &Error{Op: "recent", Err: err}
	}
	defer rows.Close()

	items := []types.Item{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, &Error{Op: "recent", Err: err}
		}
		var item types.Item
		if err := json.Unmarshal(payload, &item); err != nil {
			return nil, &Error{Op: "recent", Err: err}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, &Error{Op: "recent", Err: err}
	}
	return items, nil
}
