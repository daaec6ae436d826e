package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/analyzer/providers"
	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/store"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req providers.Request) (string, error)
}

// Analyzer produces perspectives and summaries for items.
type Analyzer struct {
	provider      Provider
	timeout       time.Duration
	maxInputChars int
	exchangeDir   string // empty disables exchange logging
	logger        *zap.Logger
}

// Option configures an Analyzer
type Option func(*Analyzer)

// WithTimeout bounds each provider call.
func WithTimeout(d time.Duration) Option {
	return func(a *Analyzer) { a.timeout = d }
}

// WithMaxInputChars caps the prompt size.
func WithMaxInputChars(n int) Option {
	return func(a *Analyzer) { a.maxInputChars = n }
}

// WithExchangeLog writes every request/response pair to dir.
func WithExchangeLog(dir string) Option {
	return func(a *Analyzer) { a.exchangeDir = dir }
}

// NewWithProvider wraps an existing provider.
func NewWithProvider(provider Provider, logger *zap.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Analyzer{
		provider: provider,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// New creates a new analyzer with the appropriate provider based on config
func New(ctx context.Context, cfg config.AnalysisConfig, logger *zap.Logger) (*Analyzer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	var provider Provider
	switch cfg.Provider {
	case config.ProviderAnthropic:
		provider = providers.NewAnthropicProvider(cfg.APIKey, cfg.Model, cfg.BaseURL)
	case config.ProviderOpenAI:
		provider = providers.NewOpenAIProvider(cfg.BaseURL, cfg.APIKey, cfg.Model, timeout)
	case config.ProviderGemini:
		p, err := providers.NewGeminiProvider(ctx, cfg.APIKey, cfg.Model)
		if err != nil {
			return nil, err
		}
		provider = p
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.Provider)
	}

	opts := []Option{WithTimeout(timeout), WithMaxInputChars(cfg.MaxInputChars)}
	if cfg.LogExchanges {
		dir, err := config.CacheDir()
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithExchangeLog(filepath.Join(dir, "exchanges")))
	}
	return NewWithProvider(provider, logger, opts...), nil
}

// Perspective asks the model for a consolidated view of the discussion.
func (a *Analyzer) Perspective(ctx context.Context, title, content string, comments []types.Comment) (*types.Perspective, error) {
	if len(comments) == 0 {
		return nil, &GenerationError{Kind: "perspective", Err: ErrNoComments}
	}

	req := providers.Request{
		System: perspectiveSystemPrompt,
		Prompt: buildPerspectivePrompt(title, content, comments, a.maxInputChars),
		JSON:   true,
	}
	resp, err := a.complete(ctx, "perspective", title, req)
	if err != nil {
		return nil, &GenerationError{Kind: "perspective", Err: err}
	}

	p, err := parsePerspective(resp)
	if err != nil {
		a.logger.Warn("unparseable perspective",
			zap.String("title", title),
			zap.Int("response_len", len(resp)),
			zap.Error(err),
		)
		return nil, &GenerationError{Kind: "perspective", Err: err}
	}
	return p, nil
}

// Summary returns a one-paragraph summary of content.
func (a *Analyzer) Summary(ctx context.Context, title, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", &GenerationError{Kind: "summary", Err: fmt.Errorf("%w: empty content", ErrMalformedResponse)}
	}

	req := providers.Request{
		System: summarySystemPrompt,
		Prompt: buildSummaryPrompt(title, content, a.maxInputChars),
	}
	resp, err := a.complete(ctx, "summary", title, req)
	if err != nil {
		return "", &GenerationError{Kind: "summary", Err: err}
	}

	summary := strings.TrimSpace(resp)
	if summary == "" {
		return "", &GenerationError{Kind: "summary", Err: providers.ErrEmptyResponse}
	}
	return summary, nil
}

func (a *Analyzer) complete(ctx context.Context, kind, title string, req providers.Request) (string, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := a.provider.Complete(ctx, req)
	a.logger.Debug("llm call",
		zap.String("provider", a.provider.Name()),
		zap.String("model", a.provider.Model()),
		zap.String("kind", kind),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Duration("elapsed", time.Since(start)),
		zap.Error(err),
	)

	if a.exchangeDir != "" {
		ex := store.Exchange{
			Timestamp: start,
			Provider:  a.provider.Name(),
			Model:     a.provider.Model(),
			Kind:      kind,
			ItemTitle: title,
			System:    req.System,
			Prompt:    req.Prompt,
			Response:  resp,
		}
		if err != nil {
			ex.Error = err.Error()
		}
		if _, saveErr := store.SaveExchange(a.exchangeDir, ex); saveErr != nil {
			a.logger.Warn("failed to save llm exchange", zap.Error(saveErr))
		}
	}

	return resp, err
}
