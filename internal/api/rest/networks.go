package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/roadgraph/roadgraph-backend/internal/api/middleware"
	"github.com/roadgraph/roadgraph-backend/internal/models"
	"github.com/roadgraph/roadgraph-backend/internal/service"
)

// CreateNetwork handles POST /networks
func (h *Handler) CreateNetwork(w http.ResponseWriter, r *http.Request) {
	customer, ok := middleware.CustomerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}
	var req struct {
		Name        string                    `json:"name"`
		Description string                    `json:"description"`
		Data        *models.FeatureCollection `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "name is required")
		return
	}
	network, err := h.networks.Create(r.Context(), customer.ID, service.CreateNetworkInput{
		Name:        req.Name,
		Description: req.Description,
		Data:        req.Data,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, network)
}

// ListNetworks handles GET /networks
func (h *Handler) ListNetworks(w http.ResponseWriter, r *http.Request) {
	customer, ok := middleware.CustomerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return
	}
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", 100)
	if limit < 1 || limit > h.cfg.PageLimitMax {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "limit out of range")
		return
	}
	networks, err := h.networks.List(r.Context(), customer.ID, skip, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, networks)
}

// GetNetwork handles GET /networks/{id}
func (h *Handler) GetNetwork(w http.ResponseWriter, r *http.Request) {
	network, ok := h.ownedNetwork(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, network)
}

// UpdateNetwork handles PUT /networks/{id}: metadata changes and/or a full
// topology replacement under a new version.
func (h *Handler) UpdateNetwork(w http.ResponseWriter, r *http.Request) {
	network, ok := h.ownedNetwork(w, r)
	if !ok {
		return
	}
	var req struct {
		Name        *string                   `json:"name"`
		Description *string                   `json:"description"`
		Data        *models.FeatureCollection `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
		return
	}
	updated, err := h.networks.Update(r.Context(), network.ID, service.UpdateNetworkInput{
		Name:        req.Name,
		Description: req.Description,
		Data:        req.Data,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

// ListNetworkVersions handles GET /networks/{id}/versions
func (h *Handler) ListNetworkVersions(w http.ResponseWriter, r *http.Request) {
	network, ok := h.ownedNetwork(w, r)
	if !ok {
		return
	}
	versions, err := h.networks.Versions(r.Context(), network.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, versions)
}

// GetNetworkEdges handles GET /networks/{id}/edges with optional version or
// timestamp selection and cursor pagination.
//
// A timestamp selector answers the point-in-time question and is served
// unpaginated; otherwise the resolved version's edge set is paged.
func (h *Handler) GetNetworkEdges(w http.ResponseWriter, r *http.Request) {
	network, ok := h.ownedNetwork(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()

	var versionNumber *int
	if raw := q.Get("version"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "version must be a positive integer")
			return
		}
		versionNumber = &v
	}

	var timestamp *time.Time
	if raw := q.Get("timestamp"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "timestamp must be RFC 3339 with timezone")
			return
		}
		timestamp = &ts
	}

	if versionNumber != nil && timestamp != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "version and timestamp are mutually exclusive")
		return
	}

	if timestamp != nil {
		edges, err := h.networks.EdgesByVersion(r.Context(), network.ID, nil, timestamp)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, edges)
		return
	}

	limit := queryInt(r, "limit", h.cfg.PageLimitDefault)
	if limit < 1 || limit > h.cfg.PageLimitMax {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "limit out of range")
		return
	}
	page, err := h.networks.PageEdges(r.Context(), network.ID, versionNumber, q.Get("cursor"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// ownedNetwork loads the {id} network and enforces tenant ownership. It
// writes the error response itself when the network is missing or foreign.
func (h *Handler) ownedNetwork(w http.ResponseWriter, r *http.Request) (*models.Network, bool) {
	customer, ok := middleware.CustomerFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, ErrCodeUnauthorized, "Authentication required")
		return nil, false
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "Invalid network id")
		return nil, false
	}
	network, err := h.networks.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return nil, false
	}
	if network.CustomerID != customer.ID {
		respondError(w, http.StatusForbidden, ErrCodeForbidden, "Access to this network is forbidden")
		return nil, false
	}
	return network, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
