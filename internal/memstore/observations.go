package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// InsertObservation stores a new observation. It fails with
// models.ErrDuplicateObservation if the product already has one that day.
func (s *Store) InsertObservation(ctx context.Context, o *models.PriceObservation) error {
	return s.write(func(st *state) error {
		if _, ok := st.products[o.ProductID]; !ok {
			return fmt.Errorf("%w: %d", models.ErrProductNotFound, o.ProductID)
		}
		o.Date = models.Day(o.Date)

		list := st.observations[o.ProductID]
		i := sort.Search(len(list), func(i int) bool { return !list[i].Date.Before(o.Date) })
		if i < len(list) && list[i].Date.Equal(o.Date) {
			return fmt.Errorf("%w: product %d on %s",
				models.ErrDuplicateObservation, o.ProductID, o.Date.Format(models.DateLayout))
		}

		o.ID = st.nextObservationID
		st.nextObservationID++
		o.CreatedAt = time.Now()

		cp := cloneObservation(o)
		list = append(list, nil)
		copy(list[i+1:], list[i:])
		list[i] = cp
		st.observations[o.ProductID] = list
		return nil
	})
}

// UpdateObservation replaces the prices of an existing observation
func (s *Store) UpdateObservation(ctx context.Context, o *models.PriceObservation) error {
	return s.write(func(st *state) error {
		for _, existing := range st.observations[o.ProductID] {
			if existing.ID == o.ID {
				existing.PriceWithDiscount = clonePrice(o.PriceWithDiscount)
				existing.PriceWithoutDiscount = clonePrice(o.PriceWithoutDiscount)
				return nil
			}
		}
		return fmt.Errorf("price observation %w: %d", models.ErrNotFound, o.ID)
	})
}

// GetObservation returns the observation of a product on date, or nil
func (s *Store) GetObservation(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error) {
	date = models.Day(date)
	var out *models.PriceObservation
	err := s.read(func(st *state) error {
		for _, o := range st.observations[productID] {
			if o.Date.Equal(date) {
				out = cloneObservation(o)
				break
			}
		}
		return nil
	})
	return out, err
}

// ListObservations returns a product's history ordered by date ascending
func (s *Store) ListObservations(ctx context.Context, productID int) ([]*models.PriceObservation, error) {
	var out []*models.PriceObservation
	err := s.read(func(st *state) error {
		out = cloneObservations(st.observations[productID])
		return nil
	})
	return out, err
}

func cloneObservations(list []*models.PriceObservation) []*models.PriceObservation {
	out := make([]*models.PriceObservation, len(list))
	for i, o := range list {
		out[i] = cloneObservation(o)
	}
	return out
}

func cloneObservation(o *models.PriceObservation) *models.PriceObservation {
	cp := *o
	cp.PriceWithDiscount = clonePrice(o.PriceWithDiscount)
	cp.PriceWithoutDiscount = clonePrice(o.PriceWithoutDiscount)
	return &cp
}

func clonePrice(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
