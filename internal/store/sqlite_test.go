package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestSQLite(t *testing.T, opts ...Option) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "db", "test.db"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Init(context.Background()))
	return s
}

func sampleItem(id string) types.Item {
	content := "article body"
	count := 7
	return types.Item{
		ID:                      id,
		Title:                   "Title " + id,
		URL:                     types.DiscussionURL(id),
		Content:                 &content,
		Comments:                []types.Comment{{Author: "a", Content: "hi"}},
		PublishedAt:             time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		CreatedAt:               time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC),
		UpdatedAt:               time.Date(2024, 1, 2, 4, 0, 0, 0, time.UTC),
		GeneratedAtCommentCount: &count,
		AIPerspective: &types.Perspective{
			Title:     "t",
			Summary:   "s",
			Sentiment: "mixed",
			Viewpoints: []types.Viewpoint{
				{Statement: "yes", SupportPercentage: 60},
			},
		},
	}
}

func TestSQLiteInitIdempotent(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Init(context.Background()))
}

func TestSQLiteGetMissing(t *testing.T) {
	s := newTestSQLite(t)
	got, err := s.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteUpsertAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	item := sampleItem("1")
	require.NoError(t, s.Upsert(ctx, item))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, item, *got)

	item.Title = "changed"
	item.Comments = append(item.Comments, types.Comment{Author: "b", Content: "again"})
	require.NoError(t, s.Upsert(ctx, item))

	got, err = s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "changed", got.Title)
	assert.Len(t, got.Comments, 2)

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestSQLiteEvictOlderThan(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{}
	s := newTestSQLite(t, WithClock(clock.Now))
	ctx := context.Background()

	clock.Set(now.AddDate(0, 0, -40))
	require.NoError(t, s.Upsert(ctx, sampleItem("old")))
	clock.Set(now.AddDate(0, 0, -10))
	require.NoError(t, s.Upsert(ctx, sampleItem("fresh")))

	clock.Set(now)
	n, err := s.EvictOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	old, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, old)

	fresh, err := s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.NotNil(t, fresh)
}

func TestSQLiteUpsertRefreshesUpdatedAt(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{}
	s := newTestSQLite(t, WithClock(clock.Now))
	ctx := context.Background()

	clock.Set(now.AddDate(0, 0, -40))
	require.NoError(t, s.Upsert(ctx, sampleItem("1")))
	clock.Set(now.AddDate(0, 0, -1))
	require.NoError(t, s.Upsert(ctx, sampleItem("1")))

	clock.Set(now)
	n, err := s.EvictOlderThan(ctx, 30)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLiteRecentOrder(t *testing.T) {
	clock := &fakeClock{}
	s := newTestSQLite(t, WithClock(clock.Now))
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		clock.Set(base.Add(time.Duration(i) * time.Minute))
		require.NoError(t, s.Upsert(ctx, sampleItem(fmt.Sprint(i))))
	}

	recent, err := s.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, []string{"4", "3", "2"}, []string{recent[0].ID, recent[1].ID, recent[2].ID})
}

func TestSQLiteConcurrentUpserts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item := sampleItem(fmt.Sprint(i % 4))
			item.Title = fmt.Sprint("v", i)
			assert.NoError(t, s.Upsert(ctx, item))
		}()
	}
	wg.Wait()

	recent, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 4)
}

func TestSQLiteClosedReturnsStoreError(t *testing.T) {
	s := newTestSQLite(t)
	require.NoError(t, s.Close())

	_, err := s.Get(context.Background(), "1")
	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "get", se.Op)
}
