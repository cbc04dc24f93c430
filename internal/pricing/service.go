package pricing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

// PercentPlaces is the precision of reported inflation percentages
const PercentPlaces = 2

// Result is the answer to an inflation query. StartDate and EndDate echo the
// requested window and are nil for all-time queries.
type Result struct {
	Percentage       decimal.Decimal `json:"percentage"`
	StartDate        *time.Time      `json:"start_date,omitempty"`
	EndDate          *time.Time      `json:"end_date,omitempty"`
	ProductsIncluded int             `json:"products_included"`
	ProductsSkipped  int             `json:"products_skipped"`
}

// ProductResult is a Result for a single product
type ProductResult struct {
	Product *models.Product
	Result
}

// CategoryResult is a Result aggregated over a category
type CategoryResult struct {
	Category *models.Category
	Result
}

// ResultCache stores computed results between requests. Slot resolves a
// key to its entry under the cache's current generation; a result is
// stored into the slot its computation started from, so an invalidation
// that lands mid-computation leaves it unreachable.
type ResultCache interface {
	Slot(ctx context.Context, key string) (string, error)
	Load(ctx context.Context, slot string, dst *Result) (bool, error)
	Store(ctx context.Context, slot string, r Result) error
}

// Store is everything the service reads
type Store interface {
	Catalog
	ObservationReader
}

// Service exposes the inflation queries used by the API
type Service struct {
	catalog    Catalog
	calculator *Calculator
	cache      ResultCache
}

// NewService creates a Service. cache may be nil.
func NewService(store Store, aggregator Aggregator, cache ResultCache) *Service {
	return &Service{
		catalog:    store,
		calculator: NewCalculator(store, aggregator),
		cache:      cache,
	}
}

// Calculator returns the underlying calculator
func (s *Service) Calculator() *Calculator {
	return s.calculator
}

// ProductInflation computes the price change of one product between start and end
func (s *Service) ProductInflation(ctx context.Context, productID int, start, end time.Time) (*ProductResult, error) {
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	start, end = models.Day(start), models.Day(end)
	key := fmt.Sprintf("product:%d:%s:%s", productID, start.Format(models.DateLayout), end.Format(models.DateLayout))
	res, err := s.cached(ctx, key, func() (Result, error) {
		ch, err := s.calculator.Change(ctx, productID, start, end)
		if err != nil {
			return Result{}, err
		}
		return window(ch.Percent, 1, 0, start, end), nil
	})
	if err != nil {
		return nil, err
	}
	return &ProductResult{Product: product, Result: res}, nil
}

// CategoryInflation averages the price change of every product in a category
func (s *Service) CategoryInflation(ctx context.Context, categoryID int, start, end time.Time) (*CategoryResult, error) {
	category, err := s.catalog.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}

	start, end = models.Day(start), models.Day(end)
	key := fmt.Sprintf("category:%d:%s:%s", categoryID, start.Format(models.DateLayout), end.Format(models.DateLayout))
	res, err := s.cached(ctx, key, func() (Result, error) {
		products, err := s.catalog.GetProductsByCategory(ctx, categoryID)
		if err != nil {
			return Result{}, err
		}
		agg, err := s.calculator.Aggregate(ctx, products, start, end)
		if err != nil {
			return Result{}, err
		}
		return window(agg.Percent, agg.Included, agg.Skipped, start, end), nil
	})
	if err != nil {
		return nil, err
	}
	return &CategoryResult{Category: category, Result: res}, nil
}

// OverallInflation averages the price change of the whole catalog between start and end
func (s *Service) OverallInflation(ctx context.Context, start, end time.Time) (*Result, error) {
	start, end = models.Day(start), models.Day(end)
	key := fmt.Sprintf("overall:%s:%s", start.Format(models.DateLayout), end.Format(models.DateLayout))
	res, err := s.cached(ctx, key, func() (Result, error) {
		products, err := s.catalog.GetAllProducts(ctx)
		if err != nil {
			return Result{}, err
		}
		agg, err := s.calculator.Aggregate(ctx, products, start, end)
		if err != nil {
			return Result{}, err
		}
		return window(agg.Percent, agg.Included, agg.Skipped, start, end), nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// OverallInflationAllTime averages, over the whole catalog, the change
// between each product's first and last known price.
func (s *Service) OverallInflationAllTime(ctx context.Context) (*Result, error) {
	res, err := s.cached(ctx, "overall:all_time", func() (Result, error) {
		products, err := s.catalog.GetAllProducts(ctx)
		if err != nil {
			return Result{}, err
		}
		agg, err := s.calculator.AggregateAllTime(ctx, products)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Percentage:       agg.Percent.Round(PercentPlaces),
			ProductsIncluded: agg.Included,
			ProductsSkipped:  agg.Skipped,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) cached(ctx context.Context, key string, compute func() (Result, error)) (Result, error) {
	if s.cache == nil {
		return compute()
	}

	slot, err := s.cache.Slot(ctx, key)
	if err != nil {
		log.Printf("Inflation cache unavailable for %s: %v", key, err)
		return compute()
	}

	var res Result
	hit, err := s.cache.Load(ctx, slot, &res)
	if err != nil {
		log.Printf("Inflation cache read failed for %s: %v", key, err)
	} else if hit {
		return res, nil
	}

	res, err = compute()
	if err != nil {
		return Result{}, err
	}

	if err := s.cache.Store(ctx, slot, res); err != nil {
		log.Printf("Inflation cache write failed for %s: %v", key, err)
	}
	return res, nil
}

func window(pct decimal.Decimal, included, skipped int, start, end time.Time) Result {
	return Result{
		Percentage:       pct.Round(PercentPlaces),
		StartDate:        &start,
		EndDate:          &end,
		ProductsIncluded: included,
		ProductsSkipped:  skipped,
	}
}
