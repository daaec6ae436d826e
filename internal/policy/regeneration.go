package policy

import (
	"math"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Defaults for Regeneration.
const (
	DefaultMinComments      = 5
	DefaultMinDrift         = 5
	DefaultMinRelativeDrift = 0.10
)

// Regeneration decides when AI-derived fields must be (re)computed.
//
// Without a perspective, one is generated once the item has MinComments
// comments. An existing perspective is stale only when the comment count has
// moved by more than MinDrift AND by more than MinRelativeDrift of the
// current count.
type Regeneration struct {
	MinComments      int
	MinDrift         int
	MinRelativeDrift float64
}

// DefaultRegeneration returns the policy with the default thresholds.
func DefaultRegeneration() Regeneration {
	return Regeneration{
		MinComments:      DefaultMinComments,
		MinDrift:         DefaultMinDrift,
		MinRelativeDrift: DefaultMinRelativeDrift,
	}
}

// NeedsRegeneration reports whether the perspective should be computed now.
func (r Regeneration) NeedsRegeneration(item types.Item) bool {
	if item.AIPerspective == nil {
		return r.enoughComments(item)
	}
	if !r.Stale(item) {
		return false
	}
	return r.enoughComments(item)
}

// Stale reports whether an existing perspective has drifted from the
// comment set. A perspective with no recorded count is always stale.
func (r Regeneration) Stale(item types.Item) bool {
	if item.AIPerspective == nil {
		return false
	}
	if item.GeneratedAtCommentCount == nil {
		return true
	}

	current := len(item.Comments)
	diff := *item.GeneratedAtCommentCount - current
	if diff < 0 {
		diff = -diff
	}
	if diff <= r.MinDrift {
		return false
	}

	relative := math.Inf(1)
	if current > 0 {
		relative = float64(diff) / float64(current)
	}
	return relative > r.MinRelativeDrift
}

// Prepare returns the item ready for generation. A stale perspective is
// cleared together with its comment count; the returned bool reports
// whether a new perspective should be generated.
func (r Regeneration) Prepare(item types.Item) (types.Item, bool) {
	if r.Stale(item) {
		item = item.Clone()
		item.AIPerspective = nil
		item.GeneratedAtCommentCount = nil
	}
	return item, r.NeedsRegeneration(item)
}

// NeedsSummary reports whether a content summary should be generated. A
// summary is produced once and never refreshed.
func (r Regeneration) NeedsSummary(item types.Item) bool {
	return item.Content != nil && *item.Content != "" && item.AISummary == nil
}

func (r Regeneration) enoughComments(item types.Item) bool {
	return len(item.Comments) >= r.MinComments
}
