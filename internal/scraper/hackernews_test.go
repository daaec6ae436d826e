package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newHNServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v0/topstories.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[41, 42, 43, 44]`))
	})
	mux.HandleFunc("/v0/item/41.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":41,"type":"story","by":"pg","time":1700000000,"title":"Hello","url":"https://example.com","score":10,"descendants":2,"kids":[50,51]}`))
	})
	mux.HandleFunc("/v0/item/50.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":50,"type":"comment","by":"alice","time":1700000100,"text":"first","parent":41}`))
	})
	mux.HandleFunc("/v0/item/51.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	mux.HandleFunc("/v0/item/42.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`null`))
	})
	mux.HandleFunc("/v0/item/43.json", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	mux.HandleFunc("/v0/item/44.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestHackerNewsTopStories(t *testing.T) {
	srv := newHNServer(t)
	hn := NewHackerNews(srv.URL+"/v0/", 5*time.Second)

	ids, err := hn.TopStories(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, []int{41, 42}, ids)

	ids, err = hn.TopStories(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, ids, 4)
}

func TestHackerNewsItem(t *testing.T) {
	srv := newHNServer(t)
	hn := NewHackerNews(srv.URL+"/v0", 5*time.Second)
	ctx := context.Background()

	item, err := hn.Item(ctx, 41)
	require.NoError(t, err)
	assert.Equal(t, "Hello", item.Title)
	assert.Equal(t, []int{50, 51}, item.Kids)
	assert.False(t, item.Removed())

	_, err = hn.Item(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = hn.Item(ctx, 43)
	assert.ErrorContains(t, err, "unexpected status 500")

	_, err = hn.Item(ctx, 44)
	assert.ErrorContains(t, err, "malformed response")
}

func TestTreeFetcherSkipsNullComment(t *testing.T) {
	srv := newHNServer(t)
	f := NewTreeFetcher(NewHackerNews(srv.URL+"/v0", 5*time.Second), 2, 2, zap.NewNop())

	tree, err := f.FetchTree(context.Background(), 41)
	require.NoError(t, err)
	require.Len(t, tree.Comments, 1)
	assert.Equal(t, 50, tree.Comments[0].ID)
	assert.Equal(t, "first", tree.Comments[0].Text)
}
