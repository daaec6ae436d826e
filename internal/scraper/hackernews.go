package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the public Hacker News Firebase API.
const DefaultBaseURL = "https://hacker-news.firebaseio.com/v0"

// ErrNotFound is returned when the API answers with a null item.
var ErrNotFound = errors.New("item not found")

// RawItem is an item as returned by /item/{id}.json
type RawItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Text        string `json:"text"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Score       int    `json:"score"`
	Descendants int    `json:"descendants"`
	Parent      int    `json:"parent"`
	Kids        []int  `json:"kids"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

// Removed reports whether the item was deleted or flagged dead.
func (r *RawItem) Removed() bool {
	return r.Deleted || r.Dead
}

// Source is the read-only tree API the fetcher walks.
type Source interface {
	TopStories(ctx context.Context, limit int) ([]int, error)
	Item(ctx context.Context, id int) (*RawItem, error)
}

// HackerNews is a Source backed by the HN Firebase API
type HackerNews struct {
	baseURL string
	client  *http.Client
}

// NewHackerNews creates an API client. An empty baseURL selects DefaultBaseURL.
func NewHackerNews(baseURL string, timeout time.Duration) *HackerNews {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &HackerNews{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// TopStories returns up to limit ids from the front page ranking.
func (h *HackerNews) TopStories(ctx context.Context, limit int) ([]int, error) {
	var ids []int
	if err := h.getJSON(ctx, "/topstories.json", &ids); err != nil {
		return nil, fmt.Errorf("failed to fetch top stories: %w", err)
	}
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Item fetches a single story or comment.
func (h *HackerNews) Item(ctx context.Context, id int) (*RawItem, error) {
	var item *RawItem
	if err := h.getJSON(ctx, fmt.Sprintf("/item/%d.json", id), &item); err != nil {
		return nil, fmt.Errorf("failed to fetch item %d: %w", id, err)
	}
	if item == nil {
		return nil, fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return item, nil
}

func (h *HackerNews) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
