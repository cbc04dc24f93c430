package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/trogers1052/grocery-inflation/internal/models"
)

type createCategoryRequest struct {
	Name        string `json:"category_name"`
	Description string `json:"description"`
}

type createProductRequest struct {
	Name       string `json:"product_name"`
	CategoryID int    `json:"category_id"`
	Link       string `json:"product_link"`
}

// GetAllCategories handles GET /categories
func (h *Handler) GetAllCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.GetAllCategories(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	if categories == nil {
		categories = []*models.Category{}
	}
	respondJSON(w, http.StatusOK, categories)
}

// GetCategory handles GET /categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	category, err := h.catalog.GetCategory(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, category)
}

// CreateCategory handles POST /categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondJSON(w, http.StatusBadRequest, errorBody("category_name is required"))
		return
	}

	category := &models.Category{Name: req.Name, Description: req.Description}
	if err := h.catalog.CreateCategory(r.Context(), category); err != nil {
		respondError(w, err)
		return
	}

	log.Printf("Created category %d (%s)", category.ID, category.Name)
	respondJSON(w, http.StatusCreated, category)
}

// DeleteCategory handles DELETE /categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteCategory(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetAllProducts handles GET /products, each with its latest price
func (h *Handler) GetAllProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.GetAllProducts(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	resp := make([]productResponse, 0, len(products))
	for _, p := range products {
		item, err := h.withLatestPrice(r.Context(), p)
		if err != nil {
			respondError(w, err)
			return
		}
		resp = append(resp, item)
	}
	respondJSON(w, http.StatusOK, resp)
}

// CreateProduct handles POST /products
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Link = strings.TrimSpace(req.Link)
	if req.Name == "" || req.Link == "" {
		respondJSON(w, http.StatusBadRequest, errorBody("product_name and product_link are required"))
		return
	}

	product := &models.Product{Name: req.Name, CategoryID: req.CategoryID, Link: req.Link}
	if err := h.catalog.CreateProduct(r.Context(), product); err != nil {
		respondError(w, err)
		return
	}

	// a new product changes the catalog-wide aggregates
	h.invalidate(r.Context())
	log.Printf("Created product %d (%s)", product.ID, product.Name)
	respondJSON(w, http.StatusCreated, productResponse{Product: product})
}

// DeleteProduct handles DELETE /products/{id}, removing its price history too
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	h.invalidate(r.Context())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invalidate(ctx context.Context) {
	if h.cache == nil {
		return
	}
	if err := h.cache.Invalidate(ctx); err != nil {
		log.Printf("Failed to invalidate inflation cache: %v", err)
	}
}
