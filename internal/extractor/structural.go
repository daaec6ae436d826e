package extractor

import (
	"bytes"
	"context"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Structural picks the first semantic content container from the raw page.
type Structural struct {
	pages pageFetcher
}

// NewStructural creates the strategy. A nil client uses http.DefaultClient.
func NewStructural(client *http.Client, userAgent string) *Structural {
	return &Structural{pages: newPageFetcher(client, userAgent)}
}

func (s *Structural) Name() string { return "structural" }

func (s *Structural) Extract(ctx context.Context, rawURL string) (Result, error) {
	page, err := s.pages.fetch(ctx, rawURL)
	if err != nil {
		return Result{}, err
	}

	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return Result{}, err
	}

	node := findCandidate(doc)
	if node == nil {
		return Result{}, ErrNoCandidate
	}

	markup, err := renderNode(node)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: textContent(node), HTML: markup}, nil
}

// findCandidate returns the first <article>, else the first <main>, else the
// first content div.
func findCandidate(doc *html.Node) *html.Node {
	matchers := []func(*html.Node) bool{
		func(n *html.Node) bool { return n.DataAtom == atom.Article },
		func(n *html.Node) bool { return n.DataAtom == atom.Main },
		isContentDiv,
		mentionsContent,
	}
	for _, match := range matchers {
		if n := findElement(doc, match); n != nil {
			return n
		}
	}
	return nil
}

// isContentDiv matches div.content or div#content.
func isContentDiv(n *html.Node) bool {
	if n.Data != ContentTag {
		return false
	}
	if strings.EqualFold(attrValue(n, "id"), contentMarker) {
		return true
	}
	for _, class := range strings.Fields(attrValue(n, "class")) {
		if strings.EqualFold(class, contentMarker) {
			return true
		}
	}
	return false
}

// mentionsContent is the loose fallback: any div whose class or id contains the marker.
func mentionsContent(n *html.Node) bool {
	if n.Data != ContentTag {
		return false
	}
	return strings.Contains(strings.ToLower(attrValue(n, "class")), contentMarker) ||
		strings.Contains(strings.ToLower(attrValue(n, "id")), contentMarker)
}
