package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/grocery-inflation/internal/backfill"
	"github.com/trogers1052/grocery-inflation/internal/models"
)

var (
	mockNow   = time.Date(2024, time.June, 15, 9, 0, 0, 0, time.UTC)
	mockToday = time.Date(2024, time.June, 15, 0, 0, 0, 0, time.UTC)
)

type halfRand struct{}

func (halfRand) Float64() float64 { return 0.5 }

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{conn: sqlDB}, mock
}

func observationRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "product_id", "price_date", "price_with_discount", "price_without_discount", "created_at"})
}

// expectAnchoredProduct queues the reads the backfill makes before walking
func expectAnchoredProduct(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("SELECT id, name, category_id, link FROM products").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category_id", "link"}).
			AddRow(1, "milk", 1, "https://shop.example/milk"))
	mock.ExpectQuery("ORDER BY price_date ASC").
		WithArgs(1).
		WillReturnRows(observationRows().AddRow(10, 1, mockToday, "1.00", "1.20", mockNow))
}

func TestWithinTx_BackfillCommits(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectAnchoredProduct(mock)
	for k := 1; k <= 53; k++ {
		date := mockToday.AddDate(0, 0, -7*k)
		if k == 53 {
			date = mockToday.AddDate(0, 0, -backfill.DefaultHorizonDays)
		}
		mock.ExpectQuery("price_date = \\$2").
			WithArgs(1, date).
			WillReturnRows(observationRows())
		mock.ExpectQuery("INSERT INTO price_observations").
			WithArgs(1, date, "1.00", "1.20", sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(100 + k))
	}
	mock.ExpectCommit()

	b := backfill.New(backfill.Transactional(db.WithinTx),
		backfill.WithRand(halfRand{}),
		backfill.WithClock(func() time.Time { return mockNow }),
	)
	summary, err := b.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 53, summary.RowsInserted)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_BackfillRollsBackOnInsertError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	expectAnchoredProduct(mock)
	mock.ExpectQuery("price_date = \\$2").WillReturnRows(observationRows())
	mock.ExpectQuery("INSERT INTO price_observations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))
	mock.ExpectQuery("price_date = \\$2").WillReturnRows(observationRows())
	mock.ExpectQuery("INSERT INTO price_observations").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	b := backfill.New(backfill.Transactional(db.WithinTx),
		backfill.WithRand(halfRand{}),
		backfill.WithClock(func() time.Time { return mockNow }),
	)
	_, err := b.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create price observation")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_ReturnsErrorIfBeginFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

	called := false
	err := db.WithinTx(context.Background(), func(tx *Tx) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTx_ReturnsErrorIfCommitFails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectCommit().WillReturnError(errors.New("commit failed"))

	err := db.WithinTx(context.Background(), func(tx *Tx) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to commit transaction")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertObservation_MapsConstraintViolations(t *testing.T) {
	tests := []struct {
		name string
		code pq.ErrorCode
		want error
	}{
		{"unique violation", pqUniqueViolation, models.ErrDuplicateObservation},
		{"foreign key violation", pqForeignKeyViolation, models.ErrProductNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			mock.ExpectQuery("INSERT INTO price_observations").
				WillReturnError(&pq.Error{Code: tt.code})

			err := db.InsertObservation(context.Background(), &models.PriceObservation{
				ProductID:         3,
				Date:              mockToday,
				PriceWithDiscount: strPtr("2.00"),
			})
			assert.ErrorIs(t, err, tt.want)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDeleteCategory_InUse(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM categories").
		WithArgs(5).
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	err := db.DeleteCategory(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrCategoryInUse)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanObservation_KeepsRawPriceText(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery("price_date <= \\$2").
		WillReturnRows(observationRows().AddRow(1, 2, mockToday, nil, "3.50", mockNow))

	obs, err := db.GetObservationOnOrBefore(context.Background(), 2, mockNow)
	require.NoError(t, err)
	require.NotNil(t, obs)
	assert.Nil(t, obs.PriceWithDiscount)
	assert.Equal(t, "3.50", *obs.PriceWithoutDiscount)
	assert.Equal(t, mockToday, obs.Date)
	require.NoError(t, mock.ExpectationsWereMet())
}
