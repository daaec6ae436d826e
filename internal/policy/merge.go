// Package policy holds the cache merge and derived-field staleness rules.
package policy

import (
	"time"

	"github.com/ibeckermayer/hnpulse/internal/types"
)

// Merge reconciles a freshly built item with its cached version.
//
// On first sighting the fresh item is returned as is. Otherwise the cached
// item wins for every field except Comments, which come from fresh, and
// UpdatedAt, which becomes now.
func Merge(now time.Time, cached *types.Item, fresh types.Item) types.Item {
	if cached == nil {
		return fresh
	}

	merged := cached.Clone()
	merged.Comments = append([]types.Comment(nil), fresh.Comments...)
	if merged.Comments == nil {
		merged.Comments = []types.Comment{}
	}
	merged.UpdatedAt = now
	return merged
}
