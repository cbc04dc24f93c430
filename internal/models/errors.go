package models

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced product or category does not exist.
	ErrNotFound = errors.New("not found")

	// ErrProductNotFound and ErrCategoryNotFound wrap ErrNotFound.
	ErrProductNotFound  = fmt.Errorf("product %w", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("category %w", ErrNotFound)

	// ErrInsufficientData is returned when the observations or prices needed
	// for a computation cannot be resolved.
	ErrInsufficientData = errors.New("insufficient price data to calculate inflation")

	// ErrUndefinedInflation is returned when the start price is exactly zero.
	ErrUndefinedInflation = errors.New("cannot calculate inflation due to zero start price")

	// ErrDuplicateObservation is returned when an observation already exists
	// for the same product and date.
	ErrDuplicateObservation = errors.New("price observation already exists for product and date")

	ErrDuplicateCategory = errors.New("category with this name already exists")
	ErrDuplicateProduct  = errors.New("product with this name or link already exists")
	ErrCategoryInUse     = errors.New("cannot delete category with associated products")
)
