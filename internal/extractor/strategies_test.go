package extractor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const paragraph = "The quick brown fox jumps over the lazy dog while the engineers debate whether " +
	"structured concurrency is worth the ceremony, and the answer, as usual, depends on the workload. "

func articlePage() string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><title>Essay</title><script>var tracking = 1;</script></head><body>`)
	sb.WriteString(`<nav><a href="/">Home</a> <a href="/about">About</a></nav>`)
	sb.WriteString(`<article><h1>On Semaphores</h1>`)
	for i := 0; i < 8; i++ {
		sb.WriteString("<p>" + paragraph + "</p>")
	}
	sb.WriteString(`<p>Closing thought: bounded fan-out keeps upstream APIs happy.</p></article>`)
	sb.WriteString(`<footer>Copyright</footer></body></html>`)
	return sb.String()
}

func newPageServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage()))
	})
	mux.HandleFunc("/main", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div class="post-content">div text</div><main><p>main text</p><script>x()</script></main></body></html>`))
	})
	mux.HandleFunc("/div", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div class="sidebar">side</div><div id="page-content"><p>one</p><p>two</p></div></body></html>`))
	})
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><div class="content-wrapper"><div class="table-of-contents">toc</div><div class="post content">body text</div></div></body></html>`))
	})
	mux.HandleFunc("/bare", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><span>nothing semantic</span></body></html>`))
	})
	mux.HandleFunc("/pdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestStructural(t *testing.T) {
	srv := newPageServer(t)
	s := NewStructural(srv.Client(), "")
	ctx := context.Background()

	t.Run("article first", func(t *testing.T) {
		res, err := s.Extract(ctx, srv.URL+"/article")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(res.HTML, "<article>"))
		assert.Contains(t, res.Text, "On Semaphores")
		assert.Contains(t, res.Text, "Closing thought")
		assert.NotContains(t, res.Text, "Home")
	})

	t.Run("main over content div", func(t *testing.T) {
		res, err := s.Extract(ctx, srv.URL+"/main")
		require.NoError(t, err)
		assert.Equal(t, "main text", res.Text)
		assert.True(t, strings.HasPrefix(res.HTML, "<main>"))
	})

	t.Run("content div", func(t *testing.T) {
		res, err := s.Extract(ctx, srv.URL+"/div")
		require.NoError(t, err)
		assert.Equal(t, "one\ntwo", res.Text)
	})

	t.Run("content class token over substring", func(t *testing.T) {
		res, err := s.Extract(ctx, srv.URL+"/token")
		require.NoError(t, err)
		assert.Equal(t, "body text", res.Text)
	})

	t.Run("no candidate", func(t *testing.T) {
		_, err := s.Extract(ctx, srv.URL+"/bare")
		assert.ErrorIs(t, err, ErrNoCandidate)
	})

	t.Run("not html", func(t *testing.T) {
		_, err := s.Extract(ctx, srv.URL+"/pdf")
		assert.ErrorIs(t, err, ErrNotHTML)
	})

	t.Run("status", func(t *testing.T) {
		_, err := s.Extract(ctx, srv.URL+"/gone")
		var se *StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, http.StatusNotFound, se.Code)
	})
}

func TestReadability(t *testing.T) {
	srv := newPageServer(t)
	r := NewReadability(srv.Client(), "")

	res, err := r.Extract(context.Background(), srv.URL+"/article")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "bounded fan-out keeps upstream APIs happy")
	assert.NotContains(t, strings.ToLower(res.HTML), "<body")
	assert.NotContains(t, strings.ToLower(res.HTML), "<html")
	assert.NotContains(t, res.HTML, "tracking")

	_, err = r.Extract(context.Background(), srv.URL+"/gone")
	assert.Error(t, err)
}

func TestReader(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte("Title: Example\n\nRendered text"))
	}))
	defer srv.Close()

	r := NewReader(srv.URL, srv.Client())
	res, err := r.Extract(context.Background(), "https://example.com/post")
	require.NoError(t, err)
	assert.Equal(t, "/https://example.com/post", gotPath)
	assert.Contains(t, res.Text, "Rendered text")
	assert.Empty(t, res.HTML)
}

func TestReaderStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewReader(srv.URL+"/", srv.Client()).Extract(context.Background(), "https://example.com")
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusTooManyRequests, se.Code)
}

func TestNarrowToBody(t *testing.T) {
	got, err := narrowToBody(`<html><head><title>t</title></head><body><p>a</p><div>b</div></body></html>`)
	require.NoError(t, err)
	assert.Equal(t, "<p>a</p><div>b</div>", got)

	fragment := `<div id="readability-page-1"><p>a</p></div>`
	got, err = narrowToBody(fragment)
	require.NoError(t, err)
	assert.Equal(t, fragment, got)
}

func TestRenderScriptListsCandidates(t *testing.T) {
	script, err := renderScript()
	require.NoError(t, err)
	assert.Contains(t, script, `"article","main"`)
}
