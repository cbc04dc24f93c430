package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trogers1052/grocery-inflation/internal/memstore"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

func jan(d int) time.Time {
	return time.Date(2024, time.January, d, 0, 0, 0, 0, time.UTC)
}

func price(s string) *string {
	return &s
}

// seedProduct creates a product in a fresh or shared category and stores its observations
func seedProduct(t *testing.T, store *memstore.Store, categoryID int, name string, obs ...*models.PriceObservation) *models.Product {
	t.Helper()
	ctx := context.Background()

	p := &models.Product{Name: name, CategoryID: categoryID, Link: "https://shop.example/" + name}
	require.NoError(t, store.CreateProduct(ctx, p))

	for _, o := range obs {
		o.ProductID = p.ID
		require.NoError(t, store.InsertObservation(ctx, o))
	}
	return p
}

func seedCategory(t *testing.T, store *memstore.Store, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, store.CreateCategory(context.Background(), c))
	return c
}

func at(d time.Time, withDiscount, withoutDiscount *string) *models.PriceObservation {
	return &models.PriceObservation{Date: d, PriceWithDiscount: withDiscount, PriceWithoutDiscount: withoutDiscount}
}

// failingReader always fails, to check that I/O errors are not swallowed
type failingReader struct{}

var errStoreDown = errors.New("store down")

func (failingReader) ListObservations(ctx context.Context, productID int) ([]*models.PriceObservation, error) {
	return nil, errStoreDown
}
