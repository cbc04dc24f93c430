package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/trogers1052/grocery-inflation/internal/models"
	"github.com/trogers1052/grocery-inflation/internal/pricing"
)

// CatalogStore reads and edits the categories and products served by the API
type CatalogStore interface {
	GetCategory(ctx context.Context, id int) (*models.Category, error)
	GetAllCategories(ctx context.Context) ([]*models.Category, error)
	CreateCategory(ctx context.Context, c *models.Category) error
	DeleteCategory(ctx context.Context, id int) error

	GetProduct(ctx context.Context, id int) (*models.Product, error)
	GetAllProducts(ctx context.Context) ([]*models.Product, error)
	CreateProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id int) error
}

// LatestObservationReader is implemented by stores that can fetch a
// product's newest observation without reading its whole history.
type LatestObservationReader interface {
	GetLatestObservation(ctx context.Context, productID int) (*models.PriceObservation, error)
}

// Invalidator drops cached inflation results after catalog changes
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	catalog CatalogStore
	service *pricing.Service
	cache   Invalidator
	now     func() time.Time
}

// NewHandler creates a new Handler. cache may be nil.
func NewHandler(catalog CatalogStore, service *pricing.Service, cache Invalidator) *Handler {
	return &Handler{
		catalog: catalog,
		service: service,
		cache:   cache,
		now:     time.Now,
	}
}

type inflationResponse struct {
	InflationPercentage float64 `json:"inflation_percentage"`
	StartDate           string  `json:"start_date,omitempty"`
	EndDate             string  `json:"end_date,omitempty"`
	ObservationPeriod   string  `json:"observation_period,omitempty"`
	ProductsIncluded    int     `json:"products_included"`
	ProductsSkipped     int     `json:"products_skipped"`
	ProductID           int     `json:"product_id,omitempty"`
	ProductName         string  `json:"product_name,omitempty"`
	CategoryID          int     `json:"category_id,omitempty"`
	CategoryName        string  `json:"category_name,omitempty"`
}

type productResponse struct {
	*models.Product
	LatestPriceWithDiscount    *string `json:"latest_price_with_discount"`
	LatestPriceWithoutDiscount *string `json:"latest_price_without_discount"`
	LatestPriceDate            *string `json:"latest_price_date"`
}

type asOfResponse struct {
	ProductID   int                      `json:"product_id"`
	AsOf        string                   `json:"as_of"`
	Price       *float64                 `json:"price"`
	Observation *models.PriceObservation `json:"observation"`
}

// GetProductInflation handles GET /inflation/product/{id}
func (h *Handler) GetProductInflation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	start, end, ok := dateRange(w, r)
	if !ok {
		return
	}

	res, err := h.service.ProductInflation(r.Context(), id, start, end)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := fromResult(res.Result)
	resp.ProductID = res.Product.ID
	resp.ProductName = res.Product.Name
	respondJSON(w, http.StatusOK, resp)
}

// GetCategoryInflation handles GET /inflation/category/{id}
func (h *Handler) GetCategoryInflation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	start, end, ok := dateRange(w, r)
	if !ok {
		return
	}

	res, err := h.service.CategoryInflation(r.Context(), id, start, end)
	if err != nil {
		respondError(w, err)
		return
	}

	resp := fromResult(res.Result)
	resp.CategoryID = res.Category.ID
	resp.CategoryName = res.Category.Name
	respondJSON(w, http.StatusOK, resp)
}

// GetOverallInflation handles GET /inflation/overall
func (h *Handler) GetOverallInflation(w http.ResponseWriter, r *http.Request) {
	start, end, ok := dateRange(w, r)
	if !ok {
		return
	}

	res, err := h.service.OverallInflation(r.Context(), start, end)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fromResult(*res))
}

// GetOverallInflationAllTime handles GET /inflation/overall/all_time
func (h *Handler) GetOverallInflationAllTime(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.OverallInflationAllTime(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	resp := fromResult(*res)
	resp.ObservationPeriod = "All Time"
	respondJSON(w, http.StatusOK, resp)
}

// GetProduct handles GET /products/{id}
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	resp, err := h.withLatestPrice(r.Context(), product)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// withLatestPrice attaches the product's newest observation, if any
func (h *Handler) withLatestPrice(ctx context.Context, product *models.Product) (productResponse, error) {
	var latest *models.PriceObservation
	var err error
	if reader, ok := h.catalog.(LatestObservationReader); ok {
		latest, err = reader.GetLatestObservation(ctx, product.ID)
	} else {
		_, latest, err = h.service.Calculator().Resolver().Bounds(ctx, product.ID)
	}
	if err != nil {
		return productResponse{}, err
	}

	resp := productResponse{Product: product}
	if latest != nil {
		date := latest.Date.Format(models.DateLayout)
		resp.LatestPriceWithDiscount = latest.PriceWithDiscount
		resp.LatestPriceWithoutDiscount = latest.PriceWithoutDiscount
		resp.LatestPriceDate = &date
	}
	return resp, nil
}

// GetPriceAsOf handles GET /products/{id}/prices?as_of=YYYY-MM-DD
func (h *Handler) GetPriceAsOf(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	asOf := models.Day(h.now().UTC())
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		d, err := models.ParseDay(raw)
		if err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody("as_of must be a YYYY-MM-DD date"))
			return
		}
		asOf = d
	}

	if _, err := h.catalog.GetProduct(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	obs, err := h.service.Calculator().Resolver().Resolve(r.Context(), id, asOf)
	if err != nil {
		respondError(w, err)
		return
	}
	if obs == nil {
		respondError(w, models.ErrInsufficientData)
		return
	}

	resp := asOfResponse{
		ProductID:   id,
		AsOf:        asOf.Format(models.DateLayout),
		Observation: obs,
	}
	if price, ok := pricing.ExtractPrice(obs); ok {
		f := price.InexactFloat64()
		resp.Price = &f
	}
	respondJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func fromResult(res pricing.Result) inflationResponse {
	resp := inflationResponse{
		InflationPercentage: res.Percentage.InexactFloat64(),
		ProductsIncluded:    res.ProductsIncluded,
		ProductsSkipped:     res.ProductsSkipped,
	}
	if res.StartDate != nil {
		resp.StartDate = res.StartDate.Format(models.DateLayout)
	}
	if res.EndDate != nil {
		resp.EndDate = res.EndDate.Format(models.DateLayout)
	}
	return resp
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil || id <= 0 {
		respondJSON(w, http.StatusBadRequest, errorBody("id must be a positive integer"))
		return 0, false
	}
	return id, true
}

func dateRange(w http.ResponseWriter, r *http.Request) (start, end time.Time, ok bool) {
	q := r.URL.Query()
	start, err := models.ParseDay(q.Get("start_date"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody("start_date must be a YYYY-MM-DD date"))
		return start, end, false
	}
	end, err = models.ParseDay(q.Get("end_date"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, errorBody("end_date must be a YYYY-MM-DD date"))
		return start, end, false
	}
	return start, end, true
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, models.ErrInsufficientData):
		respondJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, models.ErrUndefinedInflation),
		errors.Is(err, models.ErrDuplicateCategory),
		errors.Is(err, models.ErrDuplicateProduct):
		respondJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, models.ErrCategoryInUse):
		respondJSON(w, http.StatusConflict, errorBody(err.Error()))
	default:
		log.Printf("Request failed: %v", err)
		respondJSON(w, http.StatusInternalServerError, errorBody("internal server error"))
	}
}

func errorBody(msg string) map[string]string {
	return map[string]string{"detail": msg}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
