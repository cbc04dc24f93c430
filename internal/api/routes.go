package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Inflation routes
	api.HandleFunc("/inflation/product/{id}", handler.GetProductInflation).Methods("GET")
	api.HandleFunc("/inflation/category/{id}", handler.GetCategoryInflation).Methods("GET")
	api.HandleFunc("/inflation/overall", handler.GetOverallInflation).Methods("GET")
	api.HandleFunc("/inflation/overall/all_time", handler.GetOverallInflationAllTime).Methods("GET")

	// Catalog routes
	api.HandleFunc("/categories", handler.GetAllCategories).Methods("GET")
	api.HandleFunc("/categories", handler.CreateCategory).Methods("POST")
	api.HandleFunc("/categories/{id}", handler.GetCategory).Methods("GET")
	api.HandleFunc("/categories/{id}", handler.DeleteCategory).Methods("DELETE")

	// Product routes
	api.HandleFunc("/products", handler.GetAllProducts).Methods("GET")
	api.HandleFunc("/products", handler.CreateProduct).Methods("POST")
	api.HandleFunc("/products/{id}", handler.GetProduct).Methods("GET")
	api.HandleFunc("/products/{id}", handler.DeleteProduct).Methods("DELETE")
	api.HandleFunc("/products/{id}/prices", handler.GetPriceAsOf).Methods("GET")

	return r
}
