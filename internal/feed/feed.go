// Package feed renders cached items as a JSON Feed, a flat item list and an
// HTML digest page.
package feed

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Version is the JSON Feed version URL written into every document.
const Version = "https://jsonfeed.org/version/1.1"

// Meta describes the feed itself.
type Meta struct {
	Title       string
	HomePageURL string
	FeedURL     string
	Description string
}

// JSONFeed is a JSON Feed v1.1 document.
type JSONFeed struct {
	Version     string  `json:"version"`
	Title       string  `json:"title"`
	HomePageURL string  `json:"home_page_url,omitempty"`
	FeedURL     string  `json:"feed_url,omitempty"`
	Description string  `json:"description,omitempty"`
	Items       []Entry `json:"items"`
}

// Entry is one JSON Feed item.
type Entry struct {
	ID            string     `json:"id"`
	URL           string     `json:"url"`
	ExternalURL   string     `json:"external_url,omitempty"`
	Title         string     `json:"title"`
	ContentText   string     `json:"content_text,omitempty"`
	ContentHTML   string     `json:"content_html,omitempty"`
	Summary       string     `json:"summary,omitempty"`
	DatePublished *time.Time `json:"date_published,omitempty"`
	DateModified  *time.Time `json:"date_modified,omitempty"`
	Authors       []Author   `json:"authors,omitempty"`
	Tags          []string   `json:"tags,omitempty"`
}

// Author of an entry
type Author struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

const (
	sourceTag   = "hackernews"
	userBaseURL = "https://news.ycombinator.com/user?id="
)

// BuildJSONFeed converts items to a feed document, keeping their order.
func BuildJSONFeed(meta Meta, items []types.Item) JSONFeed {
	f := JSONFeed{
		Version:     Version,
		Title:       meta.Title,
		HomePageURL: meta.HomePageURL,
		FeedURL:     meta.FeedURL,
		Description: meta.Description,
		Items:       make([]Entry, 0, len(items)),
	}
	for _, it := range items {
		f.Items = append(f.Items, entry(it))
	}
	return f
}

// BuildItems returns the items ordered for publishing, newest story first.
// The input slice is not modified.
func BuildItems(items []types.Item) []types.Item {
	out := make([]types.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PublishedAt.After(out[j].PublishedAt)
	})
	return out
}

func entry(it types.Item) Entry {
	e := Entry{
		ID:          it.ID,
		URL:         it.URL,
		Title:       it.Title,
		ContentText: contentText(it),
		Summary:     summary(it),
		Tags:        []string{sourceTag},
	}
	if it.OriginalURL != nil {
		e.ExternalURL = *it.OriginalURL
	}
	if it.ContentHTML != nil {
		e.ContentHTML = *it.ContentHTML
	}
	if !it.PublishedAt.IsZero() {
		t := it.PublishedAt.UTC()
		e.DatePublished = &t
	}
	if !it.UpdatedAt.IsZero() {
		t := it.UpdatedAt.UTC()
		e.DateModified = &t
	}
	if it.Author != "" {
		e.Authors = []Author{{Name: it.Author, URL: userBaseURL + it.Author}}
	}
	if it.AIPerspective != nil && it.AIPerspective.Sentiment != "" {
		e.Tags = append(e.Tags, it.AIPerspective.Sentiment)
	}
	return e
}

func summary(it types.Item) string {
	if it.AISummary != nil && *it.AISummary != "" {
		return *it.AISummary
	}
	if it.AIPerspective != nil {
		return it.AIPerspective.Summary
	}
	return ""
}

func contentText(it types.Item) string {
	if it.Content != nil && *it.Content != "" {
		return *it.Content
	}
	if it.AIPerspective != nil {
		return renderPerspective(it.AIPerspective)
	}
	return ""
}

// renderPerspective formats a perspective as plain text.
func renderPerspective(p *types.Perspective) string {
	var sb strings.Builder
	if p.Title != "" {
		sb.WriteString(p.Title)
		sb.WriteString("\n\n")
	}
	if p.Summary != "" {
		sb.WriteString(p.Summary)
		sb.WriteString("\n\n")
	}
	if p.Sentiment != "" {
		fmt.Fprintf(&sb, "Sentiment: %s\n\n", p.Sentiment)
	}
	for _, v := range p.Viewpoints {
		fmt.Fprintf(&sb, "- %s (%s)\n", v.Statement, formatPercent(v.SupportPercentage))
	}
	return strings.TrimSpace(sb.String())
}

func formatPercent(v float64) string {
	if v == float64(int(v)) {
		return fmt.Sprintf("%d%%", int(v))
	}
	return fmt.Sprintf("%.1f%%", v)
}
