// Package publisher writes the rendered feed artifacts to a Sink.
package publisher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/feed"
	"github.com/ibeckermayer/hnpulse/internal/publisher/providers"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Sink stores named artifacts.
type Sink interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	// Location returns where name can be found, for logging.
	Location(name string) string
}

// Publisher renders items and hands them to a sink
type Publisher struct {
	sink    Sink
	builder *feed.Builder
	logger  *zap.Logger
}

// New creates a new publisher with the given sink
func New(sink Sink, builder *feed.Builder, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{sink: sink, builder: builder, logger: logger}
}

// NewFromConfig creates a publisher based on configuration
func NewFromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Publisher, error) {
	var sink Sink

	switch cfg.Feed.Publisher {
	case config.PublisherFile:
		dir, err := cfg.FeedDir()
		if err != nil {
			return nil, err
		}
		sink = providers.NewFileSink(dir)
	case config.PublisherMinio:
		m := cfg.Feed.Minio
		s, err := providers.NewMinioSink(ctx, m.Endpoint, m.AccessKey, m.SecretKey, m.Secure, m.Bucket, m.Prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to minio: %w", err)
		}
		sink = s
	default:
		return nil, fmt.Errorf("unknown feed publisher: %s", cfg.Feed.Publisher)
	}

	builder, err := feed.New(feed.Meta{
		Title:       cfg.Feed.Title,
		HomePageURL: cfg.Feed.HomePageURL,
		FeedURL:     cfg.Feed.FeedURL,
		Description: cfg.Feed.Description,
	}, cfg.Feed.MaxItems)
	if err != nil {
		return nil, err
	}
	return New(sink, builder, logger), nil
}

// Publish renders items and writes items.json, index.html and feed.json, in
// that order.
func (p *Publisher) Publish(ctx context.Context, items []types.Item) (*feed.Output, error) {
	start := time.Now()

	out, err := p.builder.Build(items)
	if err != nil {
		return nil, err
	}

	artifacts := []struct {
		name        string
		data        []byte
		contentType string
	}{
		{feed.ItemsFile, out.Items, "application/json"},
		{feed.HTMLFile, out.HTML, "text/html; charset=utf-8"},
		{feed.FeedFile, out.Feed, "application/feed+json"},
	}
	for _, a := range artifacts {
		if err := p.sink.Put(ctx, a.name, a.data, a.contentType); err != nil {
			return nil, fmt.Errorf("publish %s: %w", a.name, err)
		}
	}

	p.logger.Info("feed published",
		zap.String("location", p.sink.Location(feed.FeedFile)),
		zap.Int("items", out.ItemCount),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

// Location returns where the named artifact is published.
func (p *Publisher) Location(name string) string {
	return p.sink.Location(name)
}
