package feed

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

var day = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

func item(id string, published time.Time) types.Item {
	return types.Item{
		ID:          id,
		Title:       "Story " + id,
		URL:         types.DiscussionURL(id),
		Author:      "pg",
		Comments:    []types.Comment{{Author: "a", Content: "b"}},
		PublishedAt: published,
		CreatedAt:   published,
		UpdatedAt:   published.Add(time.Hour),
	}
}

func TestEntryFallbacks(t *testing.T) {
	it := item("1", day)
	it.AIPerspective = &types.Perspective{
		Title:     "Debate",
		Summary:   "People disagree.",
		Sentiment: "mixed",
		Viewpoints: []types.Viewpoint{
			{Statement: "It's great", SupportPercentage: 60},
			{Statement: "It's bad", SupportPercentage: 12.5},
		},
	}

	e := entry(it)
	assert.Equal(t, "People disagree.", e.Summary)
	assert.Equal(t, "Debate\n\nPeople disagree.\n\nSentiment: mixed\n\n- It's great (60%)\n- It's bad (12.5%)", e.ContentText)
	assert.Equal(t, []string{"hackernews", "mixed"}, e.Tags)
	assert.Empty(t, e.ExternalURL)
	require.Len(t, e.Authors, 1)
	assert.Equal(t, "https://news.ycombinator.com/user?id=pg", e.Authors[0].URL)
}

func TestEntryPrefersContentAndSummary(t *testing.T) {
	it := item("2", day)
	it.OriginalURL = types.StringPtr("https://example.com")
	it.Content = types.StringPtr("article text")
	it.ContentHTML = types.StringPtr("<p>article text</p>")
	it.AISummary = types.StringPtr("short")
	it.AIPerspective = &types.Perspective{Summary: "perspective summary"}

	e := entry(it)
	assert.Equal(t, "article text", e.ContentText)
	assert.Equal(t, "<p>article text</p>", e.ContentHTML)
	assert.Equal(t, "short", e.Summary)
	assert.Equal(t, "https://example.com", e.ExternalURL)
	assert.Equal(t, []string{"hackernews"}, e.Tags)
}

func TestBuildJSONFeed(t *testing.T) {
	f := BuildJSONFeed(Meta{Title: "HN", FeedURL: "https://x/feed.json"}, []types.Item{item("1", day)})

	b, err := json.Marshal(f)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, Version, doc["version"])
	items := doc["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, "1", first["id"])
	assert.Equal(t, "2025-05-01T00:00:00Z", first["date_published"])
	assert.Equal(t, "2025-05-01T01:00:00Z", first["date_modified"])
}

func TestBuildJSONFeedEmpty(t *testing.T) {
	b, err := json.Marshal(BuildJSONFeed(Meta{Title: "HN"}, nil))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"items":[]`)
}

func TestBuildItemsOrdersNewestFirst(t *testing.T) {
	in := []types.Item{item("old", day), item("new", day.Add(48*time.Hour)), item("mid", day.Add(24*time.Hour))}

	out := BuildItems(in)
	assert.Equal(t, "new", out[0].ID)
	assert.Equal(t, "mid", out[1].ID)
	assert.Equal(t, "old", out[2].ID)
	assert.Equal(t, "old", in[0].ID)
}

func TestBuilderBuild(t *testing.T) {
	b, err := New(Meta{Title: "Pulse <HN>"}, 2)
	require.NoError(t, err)
	b.now = func() time.Time { return day }

	withPerspective := item("3", day.Add(3*time.Hour))
	withPerspective.AIPerspective = &types.Perspective{
		Summary:    "Mostly positive",
		Sentiment:  "positive",
		Viewpoints: []types.Viewpoint{{Statement: "Ship it", SupportPercentage: 70}},
	}

	out, err := b.Build([]types.Item{item("1", day), item("2", day.Add(time.Hour)), withPerspective})
	require.NoError(t, err)
	assert.Equal(t, 2, out.ItemCount)
	assert.Equal(t, day, out.CreatedAt)

	var f JSONFeed
	require.NoError(t, json.Unmarshal(out.Feed, &f))
	require.Len(t, f.Items, 2)
	assert.Equal(t, "3", f.Items[0].ID)
	assert.Equal(t, "2", f.Items[1].ID)

	var flat []types.Item
	require.NoError(t, json.Unmarshal(out.Items, &flat))
	assert.Len(t, flat, 2)

	html := string(out.HTML)
	assert.Contains(t, html, "Pulse &lt;HN&gt;")
	assert.Contains(t, html, "Ship it (70%)")
	assert.Contains(t, html, `href="https://news.ycombinator.com/item?id=3"`)
	assert.False(t, strings.Contains(html, "Story 1"))
}
