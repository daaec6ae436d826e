// Package pipeline runs one fetch, extract, merge, generate and persist cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/extractor"
	"github.com/ibeckermayer/hnpulse/internal/policy"
	"github.com/ibeckermayer/hnpulse/internal/store"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

// StoryLister returns the ids of the current top stories.
type StoryLister interface {
	TopStories(ctx context.Context, limit int) ([]int, error)
}

// TreeFetcher retrieves one discussion tree.
type TreeFetcher interface {
	FetchTree(ctx context.Context, rootID int) (*types.DiscussionTree, error)
}

// ContentExtractor turns an external URL into readable text.
type ContentExtractor interface {
	Extract(ctx context.Context, url string) extractor.Result
}

// Generator produces the AI-derived fields of an item.
type Generator interface {
	Perspective(ctx context.Context, title, content string, comments []types.Comment) (*types.Perspective, error)
	Summary(ctx context.Context, title, content string) (string, error)
}

// Deps are the collaborators of a Pipeline. Extractor and Generator are
// optional; without them content extraction or generation is skipped.
type Deps struct {
	Stories   StoryLister
	Fetcher   TreeFetcher
	Extractor ContentExtractor
	Generator Generator
	Cache     store.Cache
}

// Pipeline sequences one aggregation cycle.
type Pipeline struct {
	deps   Deps
	policy policy.Regeneration
	topN   int
	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithPolicy overrides the regeneration thresholds.
func WithPolicy(r policy.Regeneration) Option {
	return func(p *Pipeline) { p.policy = r }
}

// WithTopN sets how many top stories a cycle processes.
func WithTopN(n int) Option {
	return func(p *Pipeline) { p.topN = n }
}

// WithClock overrides the time source used for merge timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// DefaultTopN is the number of stories processed when WithTopN is not given.
const DefaultTopN = 10

// New creates a pipeline.
func New(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		deps:   deps,
		policy: policy.DefaultRegeneration(),
		topN:   DefaultTopN,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Report summarizes one cycle.
type Report struct {
	RunID            string        `json:"run_id"`
	StartedAt        time.Time     `json:"started_at"`
	Took             time.Duration `json:"took"`
	Roots            int           `json:"roots"`
	Fetched          int           `json:"fetched"`
	FetchFailed      int           `json:"fetch_failed"`
	Extracted        int           `json:"extracted"`
	Generated        int           `json:"generated"`
	GenerationFailed int           `json:"generation_failed"`
	Persisted        int           `json:"persisted"`
	Items            []types.Item  `json:"items"`
}

// Run executes one cycle. Root fetch failures and generation failures are
// isolated per item; a storage failure stops the cycle, leaving the items
// persisted so far in place. The partial report is returned alongside any
// error.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{
		RunID:     uuid.NewString(),
		StartedAt: p.now(),
		Items:     []types.Item{},
	}
	logger := p.logger.With(zap.String("run_id", report.RunID))
	defer func() { report.Took = time.Since(start) }()

	ids, err := p.deps.Stories.TopStories(ctx, p.topN)
	if err != nil {
		return report, fmt.Errorf("list top stories: %w", err)
	}
	report.Roots = len(ids)
	logger.Info("cycle started", zap.Int("roots", len(ids)))

	trees := p.fetchTrees(ctx, ids, logger)
	for _, tree := range trees {
		if tree == nil {
			report.FetchFailed++
			continue
		}
		report.Fetched++
	}

	for _, tree := range trees {
		if tree == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return report, err
		}

		item, err := p.processItem(ctx, tree, report, logger)
		if err != nil {
			logger.Error("cycle aborted", zap.Int("id", tree.ID), zap.Error(err))
			return report, err
		}
		report.Items = append(report.Items, item)
	}

	logger.Info("cycle finished",
		zap.Int("fetched", report.Fetched),
		zap.Int("fetch_failed", report.FetchFailed),
		zap.Int("extracted", report.Extracted),
		zap.Int("generated", report.Generated),
		zap.Int("generation_failed", report.GenerationFailed),
		zap.Int("persisted", report.Persisted),
		zap.Duration("took", time.Since(start)),
	)
	return report, nil
}

// fetchTrees fetches every root concurrently. The result keeps the order of
// ids; a failed root leaves a nil entry.
func (p *Pipeline) fetchTrees(ctx context.Context, ids []int, logger *zap.Logger) []*types.DiscussionTree {
	trees := make([]*types.DiscussionTree, len(ids))

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, err := p.deps.Fetcher.FetchTree(ctx, id)
			if err != nil {
				logger.Warn("tree fetch failed, skipping root", zap.Int("id", id), zap.Error(err))
				return
			}
			trees[i] = tree
		}()
	}
	wg.Wait()

	return trees
}

func (p *Pipeline) processItem(ctx context.Context, tree *types.DiscussionTree, report *Report, logger *zap.Logger) (types.Item, error) {
	id := strconv.Itoa(tree.ID)

	cached, err := p.deps.Cache.Get(ctx, id)
	if err != nil {
		return types.Item{}, err
	}

	fresh := p.buildItem(ctx, tree, cached == nil, report)
	merged := policy.Merge(p.now(), cached, fresh)

	item, err := p.generate(ctx, merged, report, logger)
	if err != nil {
		report.GenerationFailed++
		logger.Warn("generation failed, keeping previous state",
			zap.String("id", id),
			zap.String("title", merged.Title),
			zap.Error(err),
		)
		item = merged
	}

	if err := p.deps.Cache.Upsert(ctx, item); err != nil {
		return types.Item{}, err
	}
	report.Persisted++
	return item, nil
}

// buildItem converts a tree into a fresh Item. Content is only extracted on
// first sighting; later cycles keep the cached content through Merge.
func (p *Pipeline) buildItem(ctx context.Context, tree *types.DiscussionTree, firstSighting bool, report *Report) types.Item {
	id := strconv.Itoa(tree.ID)
	now := p.now()

	item := types.Item{
		ID:          id,
		Title:       tree.Title,
		URL:         types.DiscussionURL(id),
		OriginalURL: tree.URL,
		Author:      tree.Author,
		Comments:    tree.Flatten(),
		PublishedAt: tree.Time,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if !firstSighting {
		return item
	}
	switch {
	case tree.URL != nil && p.deps.Extractor != nil:
		res := p.deps.Extractor.Extract(ctx, *tree.URL)
		if res.Found() {
			item.Content = types.StringPtr(res.Text)
			item.ContentHTML = types.StringPtr(res.HTML)
			report.Extracted++
		}
	case tree.URL == nil:
		// Ask HN style text posts carry their own body.
		item.Content = types.StringPtr(tree.Text)
	}
	return item
}

// generate applies the regeneration policy and calls the generator. On error
// the caller falls back to the merged item, so nothing partial escapes.
// generate runs the perspective and summary steps. A failed summary keeps a
// perspective produced in the same pass.
func (p *Pipeline) generate(ctx context.Context, merged types.Item, report *Report, logger *zap.Logger) (types.Item, error) {
	if p.deps.Generator == nil {
		return merged, nil
	}

	item, regenerate := p.policy.Prepare(merged)
	if regenerate {
		persp, err := p.deps.Generator.Perspective(ctx, item.Title, deref(item.Content), item.Comments)
		if err != nil {
			return merged, err
		}
		if persp == nil {
			return merged, errors.New("generator returned no perspective")
		}
		item = item.Clone()
		count := len(item.Comments)
		item.AIPerspective = persp
		item.GeneratedAtCommentCount = &count
	}

	if p.policy.NeedsSummary(item) {
		summary, err := p.deps.Generator.Summary(ctx, item.Title, *item.Content)
		switch {
		case err != nil && !regenerate:
			return merged, err
		case err != nil:
			report.GenerationFailed++
			logger.Warn("summary generation failed, keeping new perspective",
				zap.String("id", item.ID),
				zap.String("title", item.Title),
				zap.Error(err),
			)
		default:
			item = item.Clone()
			item.AISummary = &summary
		}
	}

	if regenerate {
		report.Generated++
	}
	return item, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
