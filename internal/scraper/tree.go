package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

// ErrRemoved is returned when a root story is deleted or dead.
var ErrRemoved = errors.New("item removed")

// FetchError reports a discussion tree that could not be retrieved.
type FetchError struct {
	ID  int
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch tree %d: %v", e.ID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// TreeFetcher walks a story and its comments.
//
// Every Source.Item call made by the fetcher, at any level and for any
// tree, holds one slot of a shared semaphore, so outstanding requests never
// exceed maxConcurrency. Comments at depth >= maxDepth are not requested.
type TreeFetcher struct {
	source   Source
	sem      *semaphore.Weighted
	maxDepth int
	logger   *zap.Logger
}

// NewTreeFetcher creates a fetcher. maxConcurrency below 1 is treated as 1.
func NewTreeFetcher(source Source, maxDepth, maxConcurrency int, logger *zap.Logger) *TreeFetcher {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &TreeFetcher{
		source:   source,
		sem:      semaphore.NewWeighted(int64(maxConcurrency)),
		maxDepth: maxDepth,
		logger:   logger,
	}
}

// FetchTree fetches the root item and its comment subtree.
func (f *TreeFetcher) FetchTree(ctx context.Context, rootID int) (*types.DiscussionTree, error) {
	start := time.Now()

	root, err := f.get(ctx, rootID)
	if err != nil {
		return nil, &FetchError{ID: rootID, Err: err}
	}
	if root.Removed() {
		return nil, &FetchError{ID: rootID, Err: ErrRemoved}
	}

	comments, err := f.fetchChildren(ctx, root.Kids, 0)
	if err != nil {
		return nil, &FetchError{ID: rootID, Err: err}
	}
	if comments == nil {
		comments = []types.CommentNode{}
	}

	tree := &types.DiscussionTree{
		ID:          root.ID,
		Title:       root.Title,
		URL:         types.StringPtr(strings.TrimSpace(root.URL)),
		Author:      root.By,
		Text:        NormalizeText(root.Text),
		Time:        time.Unix(root.Time, 0).UTC(),
		Score:       root.Score,
		Descendants: root.Descendants,
		Comments:    comments,
	}

	f.logger.Debug("fetched tree",
		zap.Int("id", rootID),
		zap.Int("top_level_comments", len(comments)),
		zap.Duration("took", time.Since(start)),
	)
	return tree, nil
}

// fetchChildren fetches one sibling batch concurrently. Any failure fails
// the whole batch. Removed and null nodes are dropped with their subtrees.
func (f *TreeFetcher) fetchChildren(ctx context.Context, ids []int, depth int) ([]types.CommentNode, error) {
	if depth >= f.maxDepth || len(ids) == 0 {
		return nil, nil
	}

	nodes := make([]*types.CommentNode, len(ids))
	g, gctx := errgroup.WithContext(ctx)

	for i, id := range ids {
		g.Go(func() error {
			raw, err := f.get(gctx, id)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if raw.Removed() {
				return nil
			}

			children, err := f.fetchChildren(gctx, raw.Kids, depth+1)
			if err != nil {
				return err
			}

			nodes[i] = &types.CommentNode{
				ID:       raw.ID,
				Author:   raw.By,
				Text:     NormalizeText(raw.Text),
				Depth:    depth,
				Children: children,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]types.CommentNode, 0, len(ids))
	for _, n := range nodes {
		if n != nil {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (f *TreeFetcher) get(ctx context.Context, id int) (*RawItem, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer f.sem.Release(1)

	return f.source.Item(ctx, id)
}
