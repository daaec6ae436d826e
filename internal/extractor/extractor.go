// Package extractor turns an external URL into readable text using an
// ordered chain of strategies.
package extractor

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/config"
)

// DefaultTimeout bounds each strategy attempt.
const DefaultTimeout = 10 * time.Second

// Result is the outcome of one extraction. HTML may be empty even when
// Text is not.
type Result struct {
	Text     string
	HTML     string
	Strategy string
}

// Found reports whether the result carries any text.
func (r Result) Found() bool {
	return strings.TrimSpace(r.Text) != ""
}

// Strategy is a single way of extracting content from a URL.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, url string) (Result, error)
}

// Extractor runs strategies in order and returns the first non-empty result.
type Extractor struct {
	strategies []Strategy
	timeout    time.Duration
	logger     *zap.Logger
}

// New creates an extractor over the given strategies.
func New(timeout time.Duration, logger *zap.Logger, strategies ...Strategy) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Extractor{
		strategies: strategies,
		timeout:    timeout,
		logger:     logger,
	}
}

// Extract never fails. Strategy errors are logged and the chain moves on;
// a zero Result means nothing produced text.
func (e *Extractor) Extract(ctx context.Context, url string) Result {
	for _, s := range e.strategies {
		res, err := e.attempt(ctx, s, url)
		if err != nil {
			e.logger.Warn("extraction strategy failed",
				zap.String("strategy", s.Name()),
				zap.String("url", url),
				zap.Error(err),
			)
			continue
		}
		if !res.Found() {
			e.logger.Debug("extraction strategy returned no text",
				zap.String("strategy", s.Name()),
				zap.String("url", url),
			)
			continue
		}

		res.Text = strings.TrimSpace(res.Text)
		res.HTML = strings.TrimSpace(res.HTML)
		res.Strategy = s.Name()
		e.logger.Debug("extracted content",
			zap.String("strategy", s.Name()),
			zap.String("url", url),
			zap.Int("chars", len(res.Text)),
		)
		return res
	}
	return Result{}
}

// Attempts runs every strategy and reports each outcome. Used for debugging.
func (e *Extractor) Attempts(ctx context.Context, url string) []Attempt {
	out := make([]Attempt, 0, len(e.strategies))
	for _, s := range e.strategies {
		start := time.Now()
		res, err := e.attempt(ctx, s, url)
		out = append(out, Attempt{
			Strategy: s.Name(),
			Result:   res,
			Err:      err,
			Took:     time.Since(start),
		})
	}
	return out
}

// Attempt is one strategy outcome from Attempts.
type Attempt struct {
	Strategy string
	Result   Result
	Err      error
	Took     time.Duration
}

func (e *Extractor) attempt(ctx context.Context, s Strategy, url string) (res Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	// recover parser panics on hostile markup
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()

	return s.Extract(ctx, url)
}

// NewFromConfig builds the default chain: readability, structural, reader,
// and the headless browser when enabled.
func NewFromConfig(cfg config.ExtractionConfig, logger *zap.Logger) *Extractor {
	client := &http.Client{}
	strategies := []Strategy{
		NewReadability(client, cfg.UserAgent),
		NewStructural(client, cfg.UserAgent),
		NewReader(cfg.ReaderBaseURL, client),
	}
	if cfg.BrowserEnabled {
		strategies = append(strategies, NewBrowser(cfg.Headless, cfg.UserAgent))
	}
	return New(time.Duration(cfg.TimeoutSeconds)*time.Second, logger, strategies...)
}
