package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/analyzer"
	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/extractor"
	"github.com/ibeckermayer/hnpulse/internal/feed"
	"github.com/ibeckermayer/hnpulse/internal/pipeline"
	"github.com/ibeckermayer/hnpulse/internal/policy"
	"github.com/ibeckermayer/hnpulse/internal/publisher"
	"github.com/ibeckermayer/hnpulse/internal/scraper"
	"github.com/ibeckermayer/hnpulse/internal/store"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Runner runs one aggregation cycle
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// FeedPublisher writes the rendered feed somewhere readers can reach it.
type FeedPublisher interface {
	Publish(ctx context.Context, items []types.Item) (*feed.Output, error)
	Location(name string) string
}

// Components are the parts rebuilt whenever the config changes.
type Components struct {
	Pipeline  Runner
	Cache     store.Cache
	Publisher FeedPublisher
}

// Close releases the cache.
func (c *Components) Close() error {
	if c.Cache == nil {
		return nil
	}
	return c.Cache.Close()
}

// Build wires the production components from cfg.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	source := scraper.NewHackerNews(cfg.Source.BaseURL, time.Duration(cfg.Source.TimeoutSeconds)*time.Second)
	fetcher := scraper.NewTreeFetcher(source, cfg.Source.MaxDepth, cfg.Source.MaxConcurrency, logger.Named("scraper"))
	ext := extractor.NewFromConfig(cfg.Extraction, logger.Named("extractor"))

	deps := pipeline.Deps{
		Stories:   source,
		Fetcher:   fetcher,
		Extractor: ext,
	}
	if generationConfigured(cfg.Analysis) {
		an, err := analyzer.New(ctx, cfg.Analysis, logger.Named("analyzer"))
		if err != nil {
			return nil, err
		}
		deps.Generator = an
	} else {
		logger.Warn("no analysis credentials configured, AI fields will not be generated",
			zap.String("provider", cfg.Analysis.Provider),
			zap.String("env", config.EnvAPIKey),
		)
	}

	cache, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	deps.Cache = cache

	pub, err := publisher.NewFromConfig(ctx, cfg, logger.Named("publisher"))
	if err != nil {
		cache.Close()
		return nil, err
	}

	p := pipeline.New(deps,
		pipeline.WithTopN(cfg.Source.TopN),
		pipeline.WithPolicy(policy.Regeneration{
			MinComments:      cfg.Analysis.MinComments,
			MinDrift:         cfg.Analysis.MinDrift,
			MinRelativeDrift: cfg.Analysis.MinRelativeDrift,
		}),
		pipeline.WithLogger(logger.Named("pipeline")),
	)

	return &Components{
		Pipeline:  p,
		Cache:     cache,
		Publisher: pub,
	}, nil
}

// generationConfigured reports whether an LLM can be called. Keyless
// OpenAI-compatible endpoints (a local LiteLLM proxy, say) only need a URL.
func generationConfigured(cfg config.AnalysisConfig) bool {
	if cfg.APIKey != "" {
		return true
	}
	return cfg.Provider == config.ProviderOpenAI && cfg.BaseURL != ""
}
