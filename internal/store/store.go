// Package store persists Items keyed by their stable id.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Cache is the persistent item store used by the pipeline.
type Cache interface {
	// Init creates the table and index if absent. Safe to call repeatedly.
	Init(ctx context.Context) error
	// Upsert inserts the item or replaces the payload of an existing row,
	// refreshing its updated_at.
	Upsert(ctx context.Context, item types.Item) error
	// Get returns nil, nil when no row exists for id.
	Get(ctx context.Context, id string) (*types.Item, error)
	// EvictOlderThan deletes rows not updated within the last days and
	// returns how many were removed.
	EvictOlderThan(ctx context.Context, days int) (int64, error)
	// Recent returns up to limit items, most recently updated first.
	Recent(ctx context.Context, limit int) ([]types.Item, error)
	Close() error
}

// Error is returned for any storage failure.
type Error struct {
	Op  string
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("store %s %s: %v", e.Op, e.ID, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source used for created_at/updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func cutoff(now time.Time, days int) time.Time {
	return now.Add(-time.Duration(days) * 24 * time.Hour)
}

// keyedMutex serializes work per key. Distinct keys never share a lock.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the lock for key and returns its release func.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
