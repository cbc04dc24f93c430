package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

const observationColumns = `id, product_id, price_date, price_with_discount, price_without_discount, created_at`

type scanner interface {
	Scan(dest ...any) error
}

// InsertObservation inserts a new price observation. A second observation
// for the same product and date fails with models.ErrDuplicateObservation.
func (db *DB) InsertObservation(ctx context.Context, o *models.PriceObservation) error {
	return insertObservation(ctx, db.conn, o)
}

// InsertObservation inserts inside the transaction
func (tx *Tx) InsertObservation(ctx context.Context, o *models.PriceObservation) error {
	return insertObservation(ctx, tx.tx, o)
}

func insertObservation(ctx context.Context, q queryer, o *models.PriceObservation) error {
	query := `
		INSERT INTO price_observations (product_id, price_date, price_with_discount, price_without_discount, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	o.Date = models.Day(o.Date)
	now := time.Now()

	err := q.QueryRowContext(ctx, query,
		o.ProductID, o.Date, o.PriceWithDiscount, o.PriceWithoutDiscount, now,
	).Scan(&o.ID)

	switch pqCode(err) {
	case pqUniqueViolation:
		return fmt.Errorf("%w: product %d on %s",
			models.ErrDuplicateObservation, o.ProductID, o.Date.Format(models.DateLayout))
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, o.ProductID)
	}
	if err != nil {
		return fmt.Errorf("failed to create price observation: %w", err)
	}
	o.CreatedAt = now
	return nil
}

// UpdateObservation corrects the prices of an existing observation
func (db *DB) UpdateObservation(ctx context.Context, o *models.PriceObservation) error {
	query := `
		UPDATE price_observations
		SET price_with_discount = $2, price_without_discount = $3
		WHERE id = $1
	`
	result, err := db.conn.ExecContext(ctx, query, o.ID, o.PriceWithDiscount, o.PriceWithoutDiscount)
	if err != nil {
		return fmt.Errorf("failed to update price observation: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("price observation %w: %d", models.ErrNotFound, o.ID)
	}
	return nil
}

// GetObservation retrieves the observation of a product on a date, or nil
func (db *DB) GetObservation(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error) {
	return getObservation(ctx, db.conn, productID, date)
}

// GetObservation reads inside the transaction, seeing its own inserts
func (tx *Tx) GetObservation(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error) {
	return getObservation(ctx, tx.tx, productID, date)
}

func getObservation(ctx context.Context, q queryer, productID int, date time.Time) (*models.PriceObservation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM price_observations
		WHERE product_id = $1 AND price_date = $2
	`
	o, err := scanObservation(q.QueryRowContext(ctx, query, productID, models.Day(date)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price observation: %w", err)
	}
	return o, nil
}

// GetObservationOnOrBefore retrieves the latest observation dated on or
// before date, or nil if there is none.
func (db *DB) GetObservationOnOrBefore(ctx context.Context, productID int, date time.Time) (*models.PriceObservation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM price_observations
		WHERE product_id = $1 AND price_date <= $2
		ORDER BY price_date DESC
		LIMIT 1
	`
	o, err := scanObservation(db.conn.QueryRowContext(ctx, query, productID, models.Day(date)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price observation as of date: %w", err)
	}
	return o, nil
}

// GetLatestObservation retrieves the most recent observation of a product, or nil
func (db *DB) GetLatestObservation(ctx context.Context, productID int) (*models.PriceObservation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM price_observations
		WHERE product_id = $1
		ORDER BY price_date DESC
		LIMIT 1
	`
	o, err := scanObservation(db.conn.QueryRowContext(ctx, query, productID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price observation: %w", err)
	}
	return o, nil
}

// ListObservations retrieves a product's history ordered by date ascending
func (db *DB) ListObservations(ctx context.Context, productID int) ([]*models.PriceObservation, error) {
	return listObservations(ctx, db.conn, productID)
}

// ListObservations lists inside the transaction
func (tx *Tx) ListObservations(ctx context.Context, productID int) ([]*models.PriceObservation, error) {
	return listObservations(ctx, tx.tx, productID)
}

func listObservations(ctx context.Context, q queryer, productID int) ([]*models.PriceObservation, error) {
	query := `
		SELECT ` + observationColumns + `
		FROM price_observations
		WHERE product_id = $1
		ORDER BY price_date ASC
	`
	rows, err := q.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list price observations: %w", err)
	}
	defer rows.Close()

	var observations []*models.PriceObservation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price observation: %w", err)
		}
		observations = append(observations, o)
	}

	return observations, rows.Err()
}

func scanObservation(row scanner) (*models.PriceObservation, error) {
	var o models.PriceObservation
	var withDiscount, withoutDiscount sql.NullString

	err := row.Scan(&o.ID, &o.ProductID, &o.Date, &withDiscount, &withoutDiscount, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	o.Date = models.Day(o.Date)
	if withDiscount.Valid {
		o.PriceWithDiscount = &withDiscount.String
	}
	if withoutDiscount.Valid {
		o.PriceWithoutDiscount = &withoutDiscount.String
	}
	return &o, nil
}
