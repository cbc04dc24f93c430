package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

var hundred = decimal.NewFromInt(100)

// Pairwise returns the percentage change from start to end. It fails with
// models.ErrUndefinedInflation when start is zero.
func Pairwise(start, end decimal.Decimal) (decimal.Decimal, error) {
	if start.IsZero() {
		return decimal.Zero, models.ErrUndefinedInflation
	}
	return end.Sub(start).Mul(hundred).Div(start), nil
}

// Change is the price movement of one product between two observations
type Change struct {
	ProductID  int
	StartDate  time.Time
	EndDate    time.Time
	StartPrice decimal.Decimal
	EndPrice   decimal.Decimal
	Percent    decimal.Decimal
}

// Aggregate is the combined movement over a set of products
type Aggregate struct {
	Percent  decimal.Decimal
	Included int
	Skipped  int
}

// Calculator computes per-product and aggregated inflation
type Calculator struct {
	resolver   *Resolver
	aggregator Aggregator
}

// NewCalculator creates a Calculator. A nil aggregator means MeanAggregator.
func NewCalculator(store ObservationReader, aggregator Aggregator) *Calculator {
	if aggregator == nil {
		aggregator = MeanAggregator{}
	}
	return &Calculator{
		resolver:   NewResolver(store),
		aggregator: aggregator,
	}
}

// Resolver exposes the as-of resolver the calculator reads through
func (c *Calculator) Resolver() *Resolver {
	return c.resolver
}

// Change computes the movement of one product between the prices in effect
// at start and at end.
func (c *Calculator) Change(ctx context.Context, productID int, start, end time.Time) (Change, error) {
	startObs, err := c.resolver.Resolve(ctx, productID, start)
	if err != nil {
		return Change{}, err
	}
	endObs, err := c.resolver.Resolve(ctx, productID, end)
	if err != nil {
		return Change{}, err
	}
	return change(productID, startObs, endObs)
}

// ChangeAllTime computes the movement between a product's earliest and
// latest observation.
func (c *Calculator) ChangeAllTime(ctx context.Context, productID int) (Change, error) {
	earliest, latest, err := c.resolver.Bounds(ctx, productID)
	if err != nil {
		return Change{}, err
	}
	return change(productID, earliest, latest)
}

func change(productID int, startObs, endObs *models.PriceObservation) (Change, error) {
	if startObs == nil || endObs == nil {
		return Change{}, models.ErrInsufficientData
	}

	startPrice, ok := ExtractPrice(startObs)
	if !ok {
		return Change{}, models.ErrInsufficientData
	}
	endPrice, ok := ExtractPrice(endObs)
	if !ok {
		return Change{}, models.ErrInsufficientData
	}

	pct, err := Pairwise(startPrice, endPrice)
	if err != nil {
		return Change{}, err
	}

	return Change{
		ProductID:  productID,
		StartDate:  startObs.Date,
		EndDate:    endObs.Date,
		StartPrice: startPrice,
		EndPrice:   endPrice,
		Percent:    pct,
	}, nil
}

// Aggregate combines the movement of every product between start and end.
// Products without enough data, or with a zero start price, are skipped.
// It fails with models.ErrInsufficientData when no product remains.
func (c *Calculator) Aggregate(ctx context.Context, products []*models.Product, start, end time.Time) (Aggregate, error) {
	return c.aggregate(products, func(p *models.Product) (Change, error) {
		return c.Change(ctx, p.ID, start, end)
	})
}

// AggregateAllTime is Aggregate over each product's full history
func (c *Calculator) AggregateAllTime(ctx context.Context, products []*models.Product) (Aggregate, error) {
	return c.aggregate(products, func(p *models.Product) (Change, error) {
		return c.ChangeAllTime(ctx, p.ID)
	})
}

func (c *Calculator) aggregate(products []*models.Product, compute func(*models.Product) (Change, error)) (Aggregate, error) {
	changes := make([]Change, 0, len(products))
	skipped := 0

	for _, p := range products {
		ch, err := compute(p)
		if errors.Is(err, models.ErrInsufficientData) || errors.Is(err, models.ErrUndefinedInflation) {
			skipped++
			continue
		}
		if err != nil {
			return Aggregate{}, fmt.Errorf("failed to compute inflation for product %d: %w", p.ID, err)
		}
		changes = append(changes, ch)
	}

	if len(changes) == 0 {
		return Aggregate{}, models.ErrInsufficientData
	}

	return Aggregate{
		Percent:  c.aggregator.Aggregate(changes),
		Included: len(changes),
		Skipped:  skipped,
	}, nil
}
