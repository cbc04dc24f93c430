package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// CreateProduct inserts a new product into an existing category
func (db *DB) CreateProduct(ctx context.Context, p *models.Product) error {
	query := `
		INSERT INTO products (name, category_id, link)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := db.conn.QueryRowContext(ctx, query, p.Name, p.CategoryID, p.Link).Scan(&p.ID)
	switch pqCode(err) {
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: %d", models.ErrCategoryNotFound, p.CategoryID)
	case pqUniqueViolation:
		return models.ErrDuplicateProduct
	}
	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetProduct retrieves a product by ID
func (db *DB) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	query := `SELECT id, name, category_id, link FROM products WHERE id = $1`

	var p models.Product
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.CategoryID, &p.Link)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return &p, nil
}

// GetAllProducts retrieves every product ordered by ID
func (db *DB) GetAllProducts(ctx context.Context) ([]*models.Product, error) {
	return getAllProducts(ctx, db.conn)
}

// GetAllProducts lists products inside the transaction
func (tx *Tx) GetAllProducts(ctx context.Context) ([]*models.Product, error) {
	return getAllProducts(ctx, tx.tx)
}

func getAllProducts(ctx context.Context, q queryer) ([]*models.Product, error) {
	query := `SELECT id, name, category_id, link FROM products ORDER BY id ASC`
	return scanProducts(q.QueryContext(ctx, query))
}

// GetProductsByCategory retrieves the products of one category
func (db *DB) GetProductsByCategory(ctx context.Context, categoryID int) ([]*models.Product, error) {
	query := `
		SELECT id, name, category_id, link
		FROM products
		WHERE category_id = $1
		ORDER BY id ASC
	`
	return scanProducts(db.conn.QueryContext(ctx, query, categoryID))
}

func scanProducts(rows *sql.Rows, err error) ([]*models.Product, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.CategoryID, &p.Link); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, &p)
	}

	return products, rows.Err()
}

// DeleteProduct removes a product; its price history is removed by cascade
func (db *DB) DeleteProduct(ctx context.Context, id int) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
	}
	return nil
}
