package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes and wraps them with CORS handling.
func SetupRoutes(handler *Handler) http.Handler {
	r := mux.NewRouter()

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	// Stock lot routes
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stocks", handler.GetStocks).Methods("GET")
	api.HandleFunc("/stocks", handler.requireAuth(handler.CreateStock)).Methods("POST")
	api.HandleFunc("/stocks/{id}", handler.requireAuth(handler.UpdateStock)).Methods("PUT")
	api.HandleFunc("/stocks/{id}", handler.requireAuth(handler.DeleteStock)).Methods("DELETE")
	api.HandleFunc("/stocks/{ticker}/history", handler.GetStockHistory).Methods("GET")

	// Aggregated views
	api.HandleFunc("/portfolio", handler.GetPortfolio).Methods("GET")
	api.HandleFunc("/exchange-rate", handler.GetExchangeRates).Methods("GET")

	return corsMiddleware(r)
}
