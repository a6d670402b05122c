package rest

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/roadgraph/roadgraph-backend/internal/api/middleware"
)

// CreateCustomer handles POST /customers. This is the only unauthenticated
// write: it is how a tenant obtains its API key in the first place.
func (h *Handler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name   string `json:"name"`
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}
	customer, err := h.customers.Create(r.Context(), req.Name, req.APIKey)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, customer)
}

// GetCurrentCustomer handles GET /customers/me
func (h *Handler) GetCurrentCustomer(w http.ResponseWriter, r *http.Request) {
	customer, ok := middleware.CustomerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// GetCustomer handles GET /customers/{id}. Customers may only see themselves.
func (h *Handler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.CustomerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid customer id")
		return
	}
	if current.ID != id {
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Access to this customer information is forbidden")
		return
	}
	customer, err := h.customers.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}

// UpdateCustomer handles PUT /customers/{id}
func (h *Handler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	current, ok := middleware.CustomerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid customer id")
		return
	}
	if current.ID != id {
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Can only update your own customer information")
		return
	}
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	customer, err := h.customers.Update(r.Context(), id, req.Name)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, customer)
}
