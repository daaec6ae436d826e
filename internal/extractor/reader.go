package extractor

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// DefaultReaderURL is the Jina reader endpoint; the target URL is appended.
const DefaultReaderURL = "https://r.jina.ai/"

// Reader asks a remote rendering service for a plain-text version of the page.
// It never returns HTML.
type Reader struct {
	baseURL string
	client  *http.Client
}

// NewReader creates the strategy. An empty baseURL selects DefaultReaderURL.
func NewReader(baseURL string, client *http.Client) *Reader {
	if baseURL == "" {
		baseURL = DefaultReaderURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Reader{baseURL: baseURL, client: client}
}

func (r *Reader) Name() string { return "reader" }

func (r *Reader) Extract(ctx context.Context, rawURL string) (Result, error) {
	endpoint := r.baseURL + rawURL
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := r.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &StatusError{URL: endpoint, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return Result{}, err
	}
	return Result{Text: string(body)}, nil
}
