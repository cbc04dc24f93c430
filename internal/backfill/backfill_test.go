package backfill

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/grocery-inflation/internal/memstore"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

var (
	now     = time.Date(2024, time.June, 15, 10, 30, 0, 0, time.UTC)
	today   = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
	horizon = today.AddDate(0, 0, -DefaultHorizonDays)
)

// sequenceRand replays draws in order and repeats the last one
type sequenceRand struct {
	draws []float64
	calls int
	// onCall, when set, runs before every draw
	onCall func(n int)
}

func (r *sequenceRand) Float64() float64 {
	r.calls++
	if r.onCall != nil {
		r.onCall(r.calls)
	}
	i := r.calls - 1
	if i >= len(r.draws) {
		i = len(r.draws) - 1
	}
	return r.draws[i]
}

func text(s string) *string {
	return &s
}

type fixture struct {
	store    *memstore.Store
	category *models.Category
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	cat := &models.Category{Name: "Produce"}
	require.NoError(t, store.CreateCategory(context.Background(), cat))
	return &fixture{store: store, category: cat}
}

func (f *fixture) product(t *testing.T, name string, obs ...*models.PriceObservation) *models.Product {
	t.Helper()
	ctx := context.Background()
	p := &models.Product{Name: name, CategoryID: f.category.ID, Link: "https://shop.example/" + name}
	require.NoError(t, f.store.CreateProduct(ctx, p))
	for _, o := range obs {
		o.ProductID = p.ID
		require.NoError(t, f.store.InsertObservation(ctx, o))
	}
	return p
}

func (f *fixture) history(t *testing.T, productID int) []*models.PriceObservation {
	t.Helper()
	obs, err := f.store.ListObservations(context.Background(), productID)
	require.NoError(t, err)
	return obs
}

func (f *fixture) backfiller(rnd Rand) *Backfiller {
	return New(Transactional(f.store.WithinTx), WithRand(rnd), WithClock(func() time.Time { return now }))
}

func TestBackfillFromToday(t *testing.T) {
	f := newFixture(t)
	apples := f.product(t, "apples", &models.PriceObservation{
		Date:                 today,
		PriceWithDiscount:    text("2.00"),
		PriceWithoutDiscount: text("2.50"),
	})

	summary, err := f.backfiller(&sequenceRand{draws: []float64{0.5}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 53, summary.RowsInserted)
	assert.Equal(t, 1, summary.ProductsScanned)
	assert.Equal(t, 0, summary.ProductsSkipped)
	assert.Equal(t, horizon, summary.Horizon)

	history := f.history(t, apples.ID)
	require.Len(t, history, 54)

	// history is ascending; the real observation is last
	assert.Equal(t, horizon, history[0].Date)
	for k := 1; k <= 52; k++ {
		obs := history[len(history)-1-k]
		assert.Equal(t, today.AddDate(0, 0, -7*k), obs.Date, "step %d", k)
		// a draw of 0.5 leaves prices unchanged
		assert.Equal(t, "2.00", *obs.PriceWithDiscount)
		assert.Equal(t, "2.50", *obs.PriceWithoutDiscount)
	}
}

func TestBackfillNoiseBounds(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "bananas", &models.PriceObservation{
		Date:                 today.AddDate(0, 0, -30),
		PriceWithDiscount:    text("80.00"),
		PriceWithoutDiscount: text("100.00"),
	})

	b := New(Transactional(f.store.WithinTx), WithSeed(42), WithClock(func() time.Time { return now }))
	_, err := b.Run(context.Background())
	require.NoError(t, err)

	history := f.history(t, p.ID)
	require.Greater(t, len(history), 2)

	low := dec("0.949")
	high := dec("1.051")
	for i := len(history) - 1; i > 0; i-- {
		newer, older := history[i], history[i-1]
		for _, pair := range [][2]*string{
			{newer.PriceWithDiscount, older.PriceWithDiscount},
			{newer.PriceWithoutDiscount, older.PriceWithoutDiscount},
		} {
			ratio := dec(*pair[1]).Div(dec(*pair[0]))
			assert.True(t, ratio.GreaterThanOrEqual(low) && ratio.LessThanOrEqual(high),
				"step to %s moved by %s", older.Date.Format(models.DateLayout), ratio)
		}
		assert.False(t, older.Date.Before(horizon))
	}
	assert.Equal(t, horizon, history[0].Date)
}

func TestBackfillRerunIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "carrots",
		&models.PriceObservation{Date: today.AddDate(0, 0, -3), PriceWithDiscount: text("1.10")},
		&models.PriceObservation{Date: today, PriceWithDiscount: text("1.20")},
	)

	_, err := f.backfiller(&sequenceRand{draws: []float64{0.1, 0.7, 0.3}}).Run(context.Background())
	require.NoError(t, err)
	first := f.history(t, p.ID)

	summary, err := f.backfiller(&sequenceRand{draws: []float64{0.9}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.RowsInserted)

	second := f.history(t, p.ID)
	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Date, second[i].Date)
		assert.Equal(t, first[i].PriceWithDiscount, second[i].PriceWithDiscount)
		assert.Equal(t, first[i].PriceWithoutDiscount, second[i].PriceWithoutDiscount)
	}
}

func TestBackfillSkips(t *testing.T) {
	f := newFixture(t)
	empty := f.product(t, "empty")
	future := f.product(t, "future",
		&models.PriceObservation{Date: today.AddDate(0, 0, -2), PriceWithDiscount: text("5.00")},
		&models.PriceObservation{Date: today.AddDate(0, 0, 2), PriceWithDiscount: text("5.50")},
	)
	old := f.product(t, "old", &models.PriceObservation{Date: horizon, PriceWithDiscount: text("3.00")})

	summary, err := f.backfiller(&sequenceRand{draws: []float64{0.5}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary.ProductsScanned)
	assert.Equal(t, 2, summary.ProductsSkipped)
	assert.Equal(t, 0, summary.RowsInserted)

	assert.Empty(t, f.history(t, empty.ID))
	assert.Len(t, f.history(t, future.ID), 2)
	assert.Len(t, f.history(t, old.ID), 1)
}

func TestBackfillMissingAnchorPrices(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "mystery", &models.PriceObservation{Date: horizon.AddDate(0, 0, 10)})

	summary, err := f.backfiller(&sequenceRand{draws: []float64{0.5}}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.RowsInserted)

	history := f.history(t, p.ID)
	require.Len(t, history, 3)
	assert.Equal(t, horizon, history[0].Date)
	assert.Equal(t, horizon.AddDate(0, 0, 3), history[1].Date)
	for _, obs := range history[:2] {
		assert.Equal(t, "100.00", *obs.PriceWithDiscount)
		assert.Equal(t, "120.00", *obs.PriceWithoutDiscount)
	}
}

// heldStore reports one date as already present without storing it
type heldStore struct {
	Store
	held time.Time
}

func (s *heldStore) GetObservation(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error) {
	if date.Equal(s.held) {
		return &models.PriceObservation{ProductID: productID, Date: date}, nil
	}
	return s.Store.GetObservation(ctx, productID, date)
}

func TestBackfillExistingDateKeepsWalking(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "dates", &models.PriceObservation{
		Date:              today,
		PriceWithDiscount: text("10.00"),
	})
	held := today.AddDate(0, 0, -14)

	runTx := func(ctx context.Context, fn func(tx Store) error) error {
		return f.store.WithinTx(ctx, func(tx *memstore.Store) error {
			return fn(&heldStore{Store: tx, held: held})
		})
	}
	// every step lowers the price by 5%
	b := New(runTx, WithRand(&sequenceRand{draws: []float64{0}}), WithClock(func() time.Time { return now }))

	summary, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 52, summary.RowsInserted)
	assert.Equal(t, 1, summary.DatesAlreadyHeld)

	byDate := make(map[time.Time]*models.PriceObservation)
	for _, obs := range f.history(t, p.ID) {
		byDate[obs.Date] = obs
	}
	assert.NotContains(t, byDate, held)
	assert.Equal(t, "9.50", *byDate[today.AddDate(0, 0, -7)].PriceWithDiscount)
	// 10 * 0.95^3, rounded each step: 9.50, 9.03 (skipped), 8.58
	assert.Equal(t, "8.58", *byDate[today.AddDate(0, 0, -21)].PriceWithDiscount)
}

// failingStore fails the nth insert
type failingStore struct {
	Store
	inserts int
	failAt  int
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) InsertObservation(ctx context.Context, o *models.PriceObservation) error {
	s.inserts++
	if s.inserts == s.failAt {
		return errDiskFull
	}
	return s.Store.InsertObservation(ctx, o)
}

func TestBackfillRollsBackOnError(t *testing.T) {
	f := newFixture(t)
	first := f.product(t, "first", &models.PriceObservation{Date: today, PriceWithDiscount: text("1.00")})
	second := f.product(t, "second", &models.PriceObservation{Date: today, PriceWithDiscount: text("2.00")})

	runTx := func(ctx context.Context, fn func(tx Store) error) error {
		return f.store.WithinTx(ctx, func(tx *memstore.Store) error {
			return fn(&failingStore{Store: tx, failAt: 60})
		})
	}
	b := New(runTx, WithRand(&sequenceRand{draws: []float64{0.5}}), WithClock(func() time.Time { return now }))

	summary, err := b.Run(context.Background())
	require.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, models.BackfillSummary{}, summary)

	assert.Len(t, f.history(t, first.ID), 1)
	assert.Len(t, f.history(t, second.ID), 1)
}

func TestBackfillRollsBackOnCancel(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "cancelled", &models.PriceObservation{Date: today, PriceWithDiscount: text("1.00")})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rnd := &sequenceRand{draws: []float64{0.5}, onCall: func(n int) {
		if n == 20 {
			cancel()
		}
	}}

	_, err := f.backfiller(rnd).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.history(t, p.ID), 1)
}

func TestBackfillDefaults(t *testing.T) {
	b := New(nil, WithHorizonDays(-1), WithWalk(Walk{Noise: decimal.Zero}))
	assert.Equal(t, DefaultHorizonDays, b.horizonDays)
	assert.Equal(t, DefaultStepDays, b.walk.StepDays)
	assert.NotNil(t, b.rnd)
	assert.NotNil(t, b.now)
}
