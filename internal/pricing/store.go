package pricing

import (
	"context"
	"time"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// ObservationReader lists a product's observations ordered by date ascending
type ObservationReader interface {
	ListObservations(ctx context.Context, productID int) ([]*models.PriceObservation, error)
}

// OnOrBeforeReader is implemented by stores that can answer an as-of query
// without listing the whole history. It returns (nil, nil) when no
// observation qualifies.
type OnOrBeforeReader interface {
	GetObservationOnOrBefore(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error)
}

// Catalog resolves products and categories. Lookups of unknown ids return
// errors wrapping models.ErrNotFound.
type Catalog interface {
	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	GetAllProducts(ctx context.Context) ([]*models.Product, error)
	GetProductsByCategory(ctx context.Context, categoryID int) ([]*models.Product, error)
}
