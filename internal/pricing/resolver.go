package pricing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// Resolver performs as-of lookups against an observation store
type Resolver struct {
	store ObservationReader
}

// NewResolver creates a Resolver reading from store
func NewResolver(store ObservationReader) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the observation with the greatest date on or before asOf,
// or nil if the product has none that early.
func (r *Resolver) Resolve(ctx context.Context, productID int, asOf time.Time) (*models.PriceObservation, error) {
	asOf = models.Day(asOf)

	if direct, ok := r.store.(OnOrBeforeReader); ok {
		obs, err := direct.GetObservationOnOrBefore(ctx, productID, asOf)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve price for product %d as of %s: %w",
				productID, asOf.Format(models.DateLayout), err)
		}
		return obs, nil
	}

	observations, err := r.store.ListObservations(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations for product %d: %w", productID, err)
	}
	return LatestAsOf(observations, asOf), nil
}

// Bounds returns the earliest and latest observation of a product, or two
// nils when it has no history.
func (r *Resolver) Bounds(ctx context.Context, productID int) (earliest, latest *models.PriceObservation, err error) {
	observations, err := r.store.ListObservations(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list observations for product %d: %w", productID, err)
	}
	if len(observations) == 0 {
		return nil, nil, nil
	}
	return observations[0], observations[len(observations)-1], nil
}

// LatestAsOf finds the last observation dated on or before asOf in a slice
// sorted by date ascending. Dates are unique per product so there are no ties.
func LatestAsOf(observations []*models.PriceObservation, asOf time.Time) *models.PriceObservation {
	asOf = models.Day(asOf)
	// first index strictly after asOf
	i := sort.Search(len(observations), func(i int) bool {
		return observations[i].Date.After(asOf)
	})
	if i == 0 {
		return nil
	}
	return observations[i-1]
}
