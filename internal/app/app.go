package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/browser"
	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/config"
	"github.com/ibeckermayer/hnpulse/internal/feed"
	"github.com/ibeckermayer/hnpulse/internal/pipeline"
	"github.com/ibeckermayer/hnpulse/internal/scheduler"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

// ErrCycleRunning is returned when a cycle or reload is requested while
// another cycle is in progress.
var ErrCycleRunning = errors.New("a cycle is already running")

// BuildFunc constructs components from a config.
type BuildFunc func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error)

// App holds the application state.
type App struct {
	mu sync.RWMutex
	// Mutable fields - use getSnapshot() for concurrent access.
	config     *config.Config
	components *Components
	lastReport *pipeline.Report
	inflight   *sync.WaitGroup // users of components; drained before they are closed

	running    atomic.Bool
	configPath string
	build      BuildFunc
	logger     *zap.Logger
}

// snapshot holds fields that may be replaced by ReloadConfig.
// Use getSnapshot() to obtain a consistent, point-in-time copy, or acquire()
// when the components are used beyond a single field read.
type snapshot struct {
	config     *config.Config
	components *Components
	release    func()
}

// getSnapshot returns a snapshot of mutable fields under read lock.
func (a *App) getSnapshot() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return snapshot{
		config:     a.config,
		components: a.components,
	}
}

// acquire returns a snapshot whose components stay open until release is
// called, even if ReloadConfig swaps them out in the meantime.
func (a *App) acquire() snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	a.inflight.Add(1)
	return snapshot{
		config:     a.config,
		components: a.components,
		release:    a.inflight.Done,
	}
}

// Option configures an App
type Option func(*App)

// WithConfigPath makes ReloadConfig read path instead of the default location.
func WithConfigPath(path string) Option {
	return func(a *App) { a.configPath = path }
}

// WithBuildFunc replaces the component constructor used by ReloadConfig.
func WithBuildFunc(fn BuildFunc) Option {
	return func(a *App) { a.build = fn }
}

// New creates a new App instance.
func New(cfg *config.Config, components *Components, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		config:     cfg,
		components: components,
		inflight:   &sync.WaitGroup{},
		build:      Build,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Config returns the active configuration.
func (a *App) Config() *config.Config {
	return a.getSnapshot().config
}

// Running reports whether a cycle is in progress.
func (a *App) Running() bool {
	return a.running.Load()
}

// LastReport returns the report of the most recent cycle, or nil.
func (a *App) LastReport() *pipeline.Report {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastReport
}

// RunCycle runs one cycle and publishes the feed. Cycles never overlap.
func (a *App) RunCycle(ctx context.Context) (*pipeline.Report, error) {
	if !a.running.CompareAndSwap(false, true) {
		return nil, ErrCycleRunning
	}
	defer a.running.Store(false)

	return a.runCycle(ctx)
}

// TriggerCycle starts a cycle in the background.
func (a *App) TriggerCycle() error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}
	go func() {
		defer a.running.Store(false)
		if _, err := a.runCycle(context.Background()); err != nil {
			a.logger.Error("triggered cycle failed", zap.Error(err))
		}
	}()
	return nil
}

func (a *App) runCycle(ctx context.Context) (*pipeline.Report, error) {
	s := a.acquire()
	defer s.release()

	report, err := s.components.Pipeline.Run(ctx)
	if report != nil {
		a.mu.Lock()
		a.lastReport = report
		a.mu.Unlock()
	}
	if err != nil {
		// publish what was persisted before the failure
		if report != nil && report.Persisted > 0 {
			if perr := a.publish(ctx, s); perr != nil {
				a.logger.Error("publish after failed cycle", zap.Error(perr))
			}
		}
		return report, fmt.Errorf("cycle %s: %w", runID(report), err)
	}

	if err := a.publish(ctx, s); err != nil {
		return report, err
	}
	return report, nil
}

// Evict deletes items older than the retention window and republishes the
// feed when anything was removed.
func (a *App) Evict(ctx context.Context) (int64, error) {
	s := a.acquire()
	defer s.release()

	n, err := s.components.Cache.EvictOlderThan(ctx, s.config.Store.RetentionDays)
	if err != nil {
		return 0, err
	}
	a.logger.Info("evicted items", zap.Int64("count", n), zap.Int("retention_days", s.config.Store.RetentionDays))

	if n > 0 {
		if err := a.publish(ctx, s); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Publish renders the current cache contents to the configured sink.
func (a *App) Publish(ctx context.Context) error {
	s := a.acquire()
	defer s.release()
	return a.publish(ctx, s)
}

func (a *App) publish(ctx context.Context, s snapshot) error {
	items, err := s.components.Cache.Recent(ctx, s.config.Feed.MaxItems)
	if err != nil {
		return err
	}
	_, err = s.components.Publisher.Publish(ctx, items)
	return err
}

// Items returns the most recently updated items.
func (a *App) Items(ctx context.Context, limit int) ([]types.Item, error) {
	s := a.acquire()
	defer s.release()
	return s.components.Cache.Recent(ctx, limit)
}

// Item returns one cached item, nil when unknown.
func (a *App) Item(ctx context.Context, id string) (*types.Item, error) {
	s := a.acquire()
	defer s.release()
	return s.components.Cache.Get(ctx, id)
}

// Feed builds the JSON Feed document from the cache.
func (a *App) Feed(ctx context.Context) (feed.JSONFeed, error) {
	s := a.acquire()
	defer s.release()

	items, err := s.components.Cache.Recent(ctx, s.config.Feed.MaxItems)
	if err != nil {
		return feed.JSONFeed{}, err
	}
	meta := feed.Meta{
		Title:       s.config.Feed.Title,
		HomePageURL: s.config.Feed.HomePageURL,
		FeedURL:     s.config.Feed.FeedURL,
		Description: s.config.Feed.Description,
	}
	return feed.BuildJSONFeed(meta, feed.BuildItems(items)), nil
}

// Schedule registers the cycle and eviction jobs from the config.
func (a *App) Schedule(s *scheduler.Scheduler) error {
	cfg := a.Config()

	if err := s.AddCycleJob(cfg.Schedule.Cycle, func(ctx context.Context) error {
		_, err := a.RunCycle(ctx)
		return err
	}); err != nil {
		return err
	}
	return s.AddEvictionJob(cfg.Schedule.Evict, func(ctx context.Context) error {
		_, err := a.Evict(ctx)
		return err
	})
}

// ViewFeed opens the published HTML page.
func (a *App) ViewFeed() error {
	loc := a.getSnapshot().components.Publisher.Location(feed.HTMLFile)
	a.logger.Info("opening feed", zap.String("location", loc))
	if strings.HasPrefix(loc, "http://") || strings.HasPrefix(loc, "https://") {
		return browser.OpenURL(loc)
	}
	return browser.OpenFile(loc)
}

// ReloadConfig reloads the configuration from disk and rebuilds the
// components. It is refused while a cycle runs.
func (a *App) ReloadConfig(ctx context.Context) error {
	if !a.running.CompareAndSwap(false, true) {
		return ErrCycleRunning
	}
	defer a.running.Store(false)

	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadFrom(a.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}

	components, err := a.build(ctx, cfg, a.logger)
	if err != nil {
		return err
	}

	a.mu.Lock()
	old, oldUsers := a.components, a.inflight
	a.config = cfg
	a.components = components
	a.inflight = &sync.WaitGroup{}
	a.mu.Unlock()

	// Evictions and API reads may still hold the previous store.
	oldUsers.Wait()
	if old != nil {
		if err := old.Close(); err != nil {
			a.logger.Warn("failed to close previous store", zap.Error(err))
		}
	}

	a.logger.Info("configuration reloaded")
	return nil
}

// Close releases the current components.
func (a *App) Close() error {
	a.mu.Lock()
	components, users := a.components, a.inflight
	a.mu.Unlock()

	users.Wait()
	if components == nil {
		return nil
	}
	return components.Close()
}

func runID(r *pipeline.Report) string {
	if r == nil {
		return "-"
	}
	return r.RunID
}
