package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// CreateCategory inserts a new category
func (db *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id
	`
	var description sql.NullString
	if c.Description != "" {
		description = sql.NullString{String: c.Description, Valid: true}
	}

	err := db.conn.QueryRowContext(ctx, query, c.Name, description).Scan(&c.ID)
	if pqCode(err) == pqUniqueViolation {
		return models.ErrDuplicateCategory
	}
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}
	return nil
}

// GetCategory retrieves a category by ID
func (db *DB) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	query := `SELECT id, name, description FROM categories WHERE id = $1`

	var c models.Category
	var description sql.NullString
	err := db.conn.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Name, &description)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %d", models.ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}

	if description.Valid {
		c.Description = description.String
	}
	return &c, nil
}

// GetAllCategories retrieves every category ordered by ID
func (db *DB) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, description FROM categories ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer rows.Close()

	var categories []*models.Category
	for rows.Next() {
		var c models.Category
		var description sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &description); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		if description.Valid {
			c.Description = description.String
		}
		categories = append(categories, &c)
	}

	return categories, rows.Err()
}

// DeleteCategory removes a category. Categories that still own products
// cannot be deleted.
func (db *DB) DeleteCategory(ctx context.Context, id int) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if pqCode(err) == pqForeignKeyViolation {
		return models.ErrCategoryInUse
	}
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %d", models.ErrCategoryNotFound, id)
	}
	return nil
}
