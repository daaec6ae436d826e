package extractor

import (
	"context"
	"io"
	"net/http"
	"strings"
)

// DefaultUserAgent is sent with page downloads.
const DefaultUserAgent = "Mozilla/5.0 (compatible; hnpulse/1.0; +https://github.com/ibeckermayer/hnpulse)"

const maxPageBytes = 8 << 20

// pageFetcher downloads raw HTML for the in-process strategies.
type pageFetcher struct {
	client    *http.Client
	userAgent string
}

func newPageFetcher(client *http.Client, userAgent string) pageFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return pageFetcher{client: client, userAgent: userAgent}
}

func (p pageFetcher) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{URL: url, Code: resp.StatusCode}
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return nil, ErrNotHTML
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
}
