package extractor

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"

	readability "github.com/go-shiori/go-readability"
)

// Readability extracts the main article using a port of Mozilla's Readability.
type Readability struct {
	pages pageFetcher
}

// NewReadability creates the strategy. A nil client uses http.DefaultClient.
func NewReadability(client *http.Client, userAgent string) *Readability {
	return &Readability{pages: newPageFetcher(client, userAgent)}
}

func (r *Readability) Name() string { return "readability" }

func (r *Readability) Extract(ctx context.Context, rawURL string) (Result, error) {
	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return Result{}, fmt.Errorf("invalid url: %w", err)
	}

	page, err := r.pages.fetch(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	article, err := readability.FromReader(bytes.NewReader(page), pageURL)
	if err != nil {
		return Result{}, fmt.Errorf("readability: %w", err)
	}

	fragment, err := narrowToBody(article.Content)
	if err != nil {
		return Result{}, fmt.Errorf("narrow to body: %w", err)
	}

	return Result{
		Text: cleanText(article.TextContent),
		HTML: fragment,
	}, nil
}
