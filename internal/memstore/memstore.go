// Package memstore is an in-memory implementation of the catalog and price
// history stores. It backs unit tests and local runs without PostgreSQL.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

// Store holds categories, products and observations in memory.
// Readers never block on a running transaction; they see the last
// committed state.
type Store struct {
	writeMu sync.Mutex // serializes writers and transactions
	mu      sync.RWMutex
	state   *state
}

type state struct {
	categories   map[int]*models.Category
	products     map[int]*models.Product
	observations map[int][]*models.PriceObservation // per product, date ascending

	nextCategoryID    int
	nextProductID     int
	nextObservationID int
}

// New creates an empty Store
func New() *Store {
	return &Store{state: &state{
		categories:        make(map[int]*models.Category),
		products:          make(map[int]*models.Product),
		observations:      make(map[int][]*models.PriceObservation),
		nextCategoryID:    1,
		nextProductID:     1,
		nextObservationID: 1,
	}}
}

// WithinTx runs fn against a private copy of the store and publishes the
// copy only if fn returns nil. Cancelling ctx before fn returns discards
// every change.
func (s *Store) WithinTx(ctx context.Context, fn func(tx *Store) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	tx := &Store{state: snapshot}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}

	s.mu.Lock()
	s.state = tx.state
	s.mu.Unlock()
	return nil
}

func (st *state) clone() *state {
	c := &state{
		categories:        make(map[int]*models.Category, len(st.categories)),
		products:          make(map[int]*models.Product, len(st.products)),
		observations:      make(map[int][]*models.PriceObservation, len(st.observations)),
		nextCategoryID:    st.nextCategoryID,
		nextProductID:     st.nextProductID,
		nextObservationID: st.nextObservationID,
	}
	for id, cat := range st.categories {
		cp := *cat
		c.categories[id] = &cp
	}
	for id, p := range st.products {
		cp := *p
		c.products[id] = &cp
	}
	for id, list := range st.observations {
		c.observations[id] = cloneObservations(list)
	}
	return c
}

func (s *Store) write(fn func(st *state) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *Store) read(fn func(st *state) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

// CreateCategory adds a category. Names are unique.
func (s *Store) CreateCategory(ctx context.Context, c *models.Category) error {
	return s.write(func(st *state) error {
		for _, existing := range st.categories {
			if existing.Name == c.Name {
				return models.ErrDuplicateCategory
			}
		}
		c.ID = st.nextCategoryID
		st.nextCategoryID++
		cp := *c
		st.categories[c.ID] = &cp
		return nil
	})
}

// GetCategory retrieves a category by ID
func (s *Store) GetCategory(ctx context.Context, id int) (*models.Category, error) {
	var out *models.Category
	err := s.read(func(st *state) error {
		c, ok := st.categories[id]
		if !ok {
			return fmt.Errorf("%w: %d", models.ErrCategoryNotFound, id)
		}
		cp := *c
		out = &cp
		return nil
	})
	return out, err
}

// GetAllCategories lists categories ordered by ID
func (s *Store) GetAllCategories(ctx context.Context) ([]*models.Category, error) {
	var out []*models.Category
	err := s.read(func(st *state) error {
		for _, c := range st.categories {
			cp := *c
			out = append(out, &cp)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// DeleteCategory removes a category that owns no products
func (s *Store) DeleteCategory(ctx context.Context, id int) error {
	return s.write(func(st *state) error {
		if _, ok := st.categories[id]; !ok {
			return fmt.Errorf("%w: %d", models.ErrCategoryNotFound, id)
		}
		for _, p := range st.products {
			if p.CategoryID == id {
				return models.ErrCategoryInUse
			}
		}
		delete(st.categories, id)
		return nil
	})
}

// CreateProduct adds a product to an existing category
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	return s.write(func(st *state) error {
		if _, ok := st.categories[p.CategoryID]; !ok {
			return fmt.Errorf("%w: %d", models.ErrCategoryNotFound, p.CategoryID)
		}
		for _, existing := range st.products {
			if existing.Name == p.Name || existing.Link == p.Link {
				return models.ErrDuplicateProduct
			}
		}
		p.ID = st.nextProductID
		st.nextProductID++
		cp := *p
		st.products[p.ID] = &cp
		return nil
	})
}

// GetProduct retrieves a product by ID
func (s *Store) GetProduct(ctx context.Context, id int) (*models.Product, error) {
	var out *models.Product
	err := s.read(func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
		}
		cp := *p
		out = &cp
		return nil
	})
	return out, err
}

// GetAllProducts lists every product ordered by ID
func (s *Store) GetAllProducts(ctx context.Context) ([]*models.Product, error) {
	return s.products(func(*models.Product) bool { return true })
}

// GetProductsByCategory lists the products of one category ordered by ID
func (s *Store) GetProductsByCategory(ctx context.Context, categoryID int) ([]*models.Product, error) {
	return s.products(func(p *models.Product) bool { return p.CategoryID == categoryID })
}

func (s *Store) products(keep func(*models.Product) bool) ([]*models.Product, error) {
	var out []*models.Product
	err := s.read(func(st *state) error {
		for _, p := range st.products {
			if keep(p) {
				cp := *p
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

// DeleteProduct removes a product together with its price history
func (s *Store) DeleteProduct(ctx context.Context, id int) error {
	return s.write(func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return fmt.Errorf("%w: %d", models.ErrProductNotFound, id)
		}
		delete(st.products, id)
		delete(st.observations, id)
		return nil
	})
}
