package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"time"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Builder renders every published artifact from one item set.
type Builder struct {
	meta     Meta
	maxItems int
	template *template.Template
	now      func() time.Time
}

// New creates a new feed builder. maxItems <= 0 means no limit.
func New(meta Meta, maxItems int) (*Builder, error) {
	tmpl, err := template.New("digest").Funcs(template.FuncMap{
		"percent": formatPercent,
	}).Parse(defaultTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}

	return &Builder{
		meta:     meta,
		maxItems: maxItems,
		template: tmpl,
		now:      time.Now,
	}, nil
}

// Output holds the rendered artifacts.
type Output struct {
	Feed      []byte // feed.json
	Items     []byte // items.json
	HTML      []byte // index.html
	ItemCount int
	CreatedAt time.Time
}

// Artifact names used by publishers.
const (
	FeedFile  = "feed.json"
	ItemsFile = "items.json"
	HTMLFile  = "index.html"
)

type pageData struct {
	Title       string
	Description string
	HomePageURL string
	Date        string
	Items       []types.Item
}

// Build orders and limits items, then renders the feed, the flat list and
// the HTML page.
func (b *Builder) Build(items []types.Item) (*Output, error) {
	ordered := BuildItems(items)
	if b.maxItems > 0 && len(ordered) > b.maxItems {
		ordered = ordered[:b.maxItems]
	}

	feedJSON, err := json.MarshalIndent(BuildJSONFeed(b.meta, ordered), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode feed: %w", err)
	}
	itemsJSON, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	now := b.now()
	var htmlBuf bytes.Buffer
	data := pageData{
		Title:       b.meta.Title,
		Description: b.meta.Description,
		HomePageURL: b.meta.HomePageURL,
		Date:        now.Format("Monday, January 2 15:04 MST"),
		Items:       ordered,
	}
	if err := b.template.Execute(&htmlBuf, data); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}

	return &Output{
		Feed:      feedJSON,
		Items:     itemsJSON,
		HTML:      htmlBuf.Bytes(),
		ItemCount: len(ordered),
		CreatedAt: now,
	}, nil
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <link rel="alternate" type="application/feed+json" href="feed.json">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 720px; margin: 0 auto; padding: 20px; background: #f6f6ef; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #ff6600; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .item { border-bottom: 1px solid #eee; padding: 15px 0; }
        .item:last-child { border-bottom: none; }
        .title a { font-weight: bold; color: #333; text-decoration: none; }
        .meta { color: #666; font-size: 13px; }
        .summary { margin: 10px 0; line-height: 1.4; }
        .sentiment { background: #fff0e6; color: #ff6600; padding: 2px 8px; border-radius: 12px; font-size: 12px; }
        .viewpoints { margin: 8px 0; padding-left: 20px; color: #444; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>

        {{range .Items}}
        <div class="item">
            <div class="title"><a href="{{if .OriginalURL}}{{.OriginalURL}}{{else}}{{.URL}}{{end}}">{{.Title}}</a></div>
            <div class="meta">by {{.Author}} · {{len .Comments}} comments · <a href="{{.URL}}">discussion</a></div>
            {{if .AISummary}}<div class="summary">{{.AISummary}}</div>{{end}}
            {{with .AIPerspective}}
            <div class="summary">{{.Summary}} {{if .Sentiment}}<span class="sentiment">{{.Sentiment}}</span>{{end}}</div>
            <ul class="viewpoints">
                {{range .Viewpoints}}<li>{{.Statement}} ({{percent .SupportPercentage}})</li>{{end}}
            </ul>
            {{end}}
        </div>
        {{end}}

        <div class="footer">
            {{len .Items}} stories · Generated by hnpulse
        </div>
    </div>
</body>
</html>`
