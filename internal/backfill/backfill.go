// Package backfill generates a synthetic weekly price history for products
// whose real history starts recently. The walk goes backward from each
// product's earliest observation down to a one-year horizon.
package backfill

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// Store is the subset of the price store the backfill writes through
type Store interface {
	GetAllProducts(ctx context.Context) ([]*models.Product, error)
	ListObservations(ctx context.Context, productID int) ([]*models.PriceObservation, error)
	GetObservation(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error)
	InsertObservation(ctx context.Context, o *models.PriceObservation) error
}

// TxRunner runs fn inside one transaction, committing only if fn returns nil
type TxRunner func(ctx context.Context, fn func(tx Store) error) error

// Transactional adapts a store's typed WithinTx method to a TxRunner
func Transactional[S Store](within func(context.Context, func(S) error) error) TxRunner {
	return func(ctx context.Context, fn func(tx Store) error) error {
		return within(ctx, func(tx S) error { return fn(tx) })
	}
}

// Rand is a source of uniform draws in [0, 1)
type Rand interface {
	Float64() float64
}

// Backfiller generates synthetic history for the whole catalog
type Backfiller struct {
	runTx       TxRunner
	walk        Walk
	horizonDays int
	rnd         Rand
	now         func() time.Time
}

// Option configures a Backfiller
type Option func(*Backfiller)

// WithWalk overrides the step size and noise
func WithWalk(w Walk) Option {
	return func(b *Backfiller) { b.walk = w }
}

// WithHorizonDays sets how far back from today the history reaches
func WithHorizonDays(days int) Option {
	return func(b *Backfiller) { b.horizonDays = days }
}

// WithRand injects the random source
func WithRand(r Rand) Option {
	return func(b *Backfiller) { b.rnd = r }
}

// WithSeed uses a deterministic random source
func WithSeed(seed int64) Option {
	return func(b *Backfiller) { b.rnd = rand.New(rand.NewSource(seed)) }
}

// WithClock injects the current time
func WithClock(now func() time.Time) Option {
	return func(b *Backfiller) { b.now = now }
}

// New creates a Backfiller that writes through runTx
func New(runTx TxRunner, opts ...Option) *Backfiller {
	b := &Backfiller{
		runTx:       runTx,
		walk:        DefaultWalk(),
		horizonDays: DefaultHorizonDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.walk.StepDays <= 0 {
		b.walk.StepDays = DefaultStepDays
	}
	if b.horizonDays < 0 {
		b.horizonDays = DefaultHorizonDays
	}
	if b.rnd == nil {
		b.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return b
}

// Run backfills every product in one transaction. Any error, including
// cancellation of ctx, rolls back all rows written by the run.
func (b *Backfiller) Run(ctx context.Context) (models.BackfillSummary, error) {
	today := models.Day(b.now().UTC())
	horizon := today.AddDate(0, 0, -b.horizonDays)

	var summary models.BackfillSummary
	err := b.runTx(ctx, func(tx Store) error {
		summary = models.BackfillSummary{Horizon: horizon}

		products, err := tx.GetAllProducts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list products: %w", err)
		}

		for _, p := range products {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary.ProductsScanned++
			if err := b.backfillProduct(ctx, tx, p, today, horizon, &summary); err != nil {
				return fmt.Errorf("failed to backfill product %d: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("Price history backfill rolled back: %v", err)
		return models.BackfillSummary{}, err
	}

	log.Printf("Price history backfill committed: %d products, %d skipped, %d rows inserted, %d dates already present",
		summary.ProductsScanned, summary.ProductsSkipped, summary.RowsInserted, summary.DatesAlreadyHeld)
	return summary, nil
}

func (b *Backfiller) backfillProduct(ctx context.Context, tx Store, p *models.Product, today, horizon time.Time, summary *models.BackfillSummary) error {
	observations, err := tx.ListObservations(ctx, p.ID)
	if err != nil {
		return err
	}
	if len(observations) == 0 {
		log.Printf("Product '%s' has no price records, skipping", p.Name)
		summary.ProductsSkipped++
		return nil
	}

	latest := observations[len(observations)-1]
	if models.Day(latest.Date).After(today) {
		log.Printf("Latest price date for product '%s' is after today, skipping", p.Name)
		summary.ProductsSkipped++
		return nil
	}

	state := AnchorState(observations[0])
	for state.Date.After(horizon) {
		if err := ctx.Err(); err != nil {
			return err
		}

		// The walk continues from the drawn values even when the date is
		// already populated; the stored row is left untouched.
		next := b.walk.Next(state, b.rnd.Float64(), horizon)

		existing, err := tx.GetObservation(ctx, p.ID, next.Date)
		if err != nil {
			return err
		}
		if existing != nil {
			log.Printf("Price for product '%s' on %s already exists, skipping", p.Name, next.Date.Format(models.DateLayout))
			summary.DatesAlreadyHeld++
		} else {
			obs := &models.PriceObservation{
				ProductID:            p.ID,
				Date:                 next.Date,
				PriceWithDiscount:    models.PriceText(next.Discount),
				PriceWithoutDiscount: models.PriceText(next.Full),
			}
			if err := tx.InsertObservation(ctx, obs); err != nil {
				return err
			}
			log.Printf("Added price for '%s' on %s: discounted %s, regular %s",
				p.Name, next.Date.Format(models.DateLayout), next.Discount.StringFixed(2), next.Full.StringFixed(2))
			summary.RowsInserted++
		}

		state = next
	}
	return nil
}
