package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roadgraph/roadgraph-backend/internal/config"
	"github.com/roadgraph/roadgraph-backend/internal/service"
)

// Handler manages HTTP request handlers
type Handler struct {
	customers *service.CustomerService
	networks  *service.NetworkService
	cfg       *config.Config
}

// NewHandler creates a new HTTP handler
func NewHandler(cs *service.CustomerService, ns *service.NetworkService, cfg *config.Config) *Handler {
	return &Handler{
		customers: cs,
		networks:  ns,
		cfg:       cfg,
	}
}

// SetupRoutes configures API routes
func SetupRoutes(router *mux.Router, h *Handler) {
	// Customer routes
	router.HandleFunc("/customers", h.CreateCustomer).Methods("POST")
	router.HandleFunc("/customers/me", h.GetCurrentCustomer).Methods("GET")
	router.HandleFunc("/customers/{id}", h.GetCustomer).Methods("GET")
	router.HandleFunc("/customers/{id}", h.UpdateCustomer).Methods("PUT")

	// Network routes
	router.HandleFunc("/networks", h.CreateNetwork).Methods("POST")
	router.HandleFunc("/networks", h.ListNetworks).Methods("GET")
	router.HandleFunc("/networks/{id}", h.GetNetwork).Methods("GET")
	router.HandleFunc("/networks/{id}", h.UpdateNetwork).Methods("PUT")
	router.HandleFunc("/networks/{id}/versions", h.ListNetworkVersions).Methods("GET")
	router.HandleFunc("/networks/{id}/edges", h.GetNetworkEdges).Methods("GET")
}

// SetupMetricsRoute exposes the Prometheus scrape endpoint on the root router.
func SetupMetricsRoute(router *mux.Router) {
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}
