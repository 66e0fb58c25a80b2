// Package catalog resolves the provider's generated mixes into a flat,
// id-keyed catalog consumed by the sync engine.
//
// The provider organizes mixes into named categories with loosely-shaped
// items; the resolver is the single place that raw shape is validated and
// typed. Items without an id are skipped. Colliding ids across categories
// are last-write-wins: not expected in practice, but they must not crash.
//
// A provider failure propagates wrapped in [shared.ErrUpstreamUnavailable];
// there are no retries at this layer. Retry policy belongs to whoever owns
// the session.
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/ferrova/tidalsnap/internal/models"
	"github.com/ferrova/tidalsnap/internal/services"
	"github.com/ferrova/tidalsnap/internal/shared"
)

// Resolve enumerates all available mixes, fresh from the provider.
// The result has no identity beyond this call: never cache it across runs.
func Resolve(ctx context.Context, session services.Session) (map[string]models.MixDescriptor, error) {
	categories, err := session.MixCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrUpstreamUnavailable, err)
	}

	mixes := make(map[string]models.MixDescriptor)
	for _, category := range categories {
		for _, item := range category.Items {
			if item.ID == "" {
				continue
			}
			mixes[item.ID] = models.NewMixDescriptor(item)
		}
	}
	return mixes, nil
}

// Sorted returns the catalog's descriptors ordered by title (id as a
// tiebreak) for stable display in the CLI and TUI.
func Sorted(mixes map[string]models.MixDescriptor) []models.MixDescriptor {
	out := make([]models.MixDescriptor, 0, len(mixes))
	for _, mix := range mixes {
		out = append(out, mix)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Title != out[j].Title {
			return out[i].Title < out[j].Title
		}
		return out[i].ID < out[j].ID
	})
	return out
}
