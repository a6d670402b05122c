package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roadgraph/roadgraph-backend/internal/api/middleware"
	"github.com/roadgraph/roadgraph-backend/internal/config"
	"github.com/roadgraph/roadgraph-backend/internal/repository"
	"github.com/roadgraph/roadgraph-backend/internal/service"
	"github.com/roadgraph/roadgraph-backend/migrations"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	schema, err := migrations.Schema("sqlite")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(schema))

	customers := service.NewCustomerService(repo)
	networks := service.NewNetworkService(repo)
	cfg := &config.Config{PageLimitDefault: 100, PageLimitMax: 1000}

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	SetupRoutes(api, NewHandler(customers, networks, cfg))
	router.Use(middleware.Auth(customers))

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, apiKey string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp, decoded
}

func signupCustomer(t *testing.T, srv *httptest.Server, name string) (int64, string) {
	t.Helper()
	resp, body := doJSON(t, srv, http.MethodPost, "/api/v1/customers", "", map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return int64(body["id"].(float64)), body["api_key"].(string)
}

func roadCollection(ids ...string) map[string]interface{} {
	features := make([]map[string]interface{}, 0, len(ids))
	for i, id := range ids {
		base := float64(i * 2)
		features = append(features, map[string]interface{}{
			"type": "Feature",
			"geometry": map[string]interface{}{
				"type":        "LineString",
				"coordinates": [][]float64{{base, base}, {base + 1, base + 1}},
			},
			"properties": map[string]interface{}{"id": id},
		})
	}
	return map[string]interface{}{"type": "FeatureCollection", "features": features}
}

func TestCustomerSignupAndSelfAccess(t *testing.T) {
	srv := newTestServer(t)

	id, key := signupCustomer(t, srv, "acme")
	require.NotEmpty(t, key)

	resp, body := doJSON(t, srv, http.MethodGet, "/api/v1/customers/me", key, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "acme", body["name"])

	resp, _ = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/customers/%d", id), key, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Other customers are invisible, even existing ones.
	otherID, _ := signupCustomer(t, srv, "rival")
	resp, _ = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/customers/%d", otherID), key, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuth_RejectsMissingAndInvalidKeys(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, srv, http.MethodGet, "/api/v1/networks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/v1/networks", "no-such-key", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNetworkLifecycle(t *testing.T) {
	srv := newTestServer(t)
	_, key := signupCustomer(t, srv, "acme")

	resp, created := doJSON(t, srv, http.MethodPost, "/api/v1/networks", key, map[string]interface{}{
		"name": "berlin",
		"data": roadCollection("r1", "r2"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), created["version"])
	assert.Equal(t, float64(2), created["edge_count"])
	networkID := int64(created["id"].(float64))

	resp, got := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/networks/%d", networkID), key, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "berlin", got["name"])

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/networks", nil)
	require.NoError(t, err)
	req.Header.Set("X-API-Key", key)
	listResp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer listResp.Body.Close()
	assert.Equal(t, http.StatusOK, listResp.StatusCode)
	var list []map[string]interface{}
	require.NoError(t, json.NewDecoder(listResp.Body).Decode(&list))
	assert.Len(t, list, 1)

	resp, updated := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/api/v1/networks/%d", networkID), key, map[string]interface{}{
		"data": roadCollection("r3"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), updated["version"])
	assert.Equal(t, float64(1), updated["edge_count"])

	vreq, err := http.NewRequest(http.MethodGet, srv.URL+fmt.Sprintf("/api/v1/networks/%d/versions", networkID), nil)
	require.NoError(t, err)
	vreq.Header.Set("X-API-Key", key)
	vresp, err := srv.Client().Do(vreq)
	require.NoError(t, err)
	defer vresp.Body.Close()
	assert.Equal(t, http.StatusOK, vresp.StatusCode)
	var versions []map[string]interface{}
	require.NoError(t, json.NewDecoder(vresp.Body).Decode(&versions))
	require.Len(t, versions, 2)
	assert.Equal(t, float64(1), versions[0]["version_number"])
	assert.Equal(t, float64(2), versions[1]["version_number"])
}

func TestNetworkEdges_Selectors(t *testing.T) {
	srv := newTestServer(t)
	_, key := signupCustomer(t, srv, "acme")

	_, created := doJSON(t, srv, http.MethodPost, "/api/v1/networks", key, map[string]interface{}{
		"name": "net",
		"data": roadCollection("r1", "r2", "r3"),
	})
	networkID := int64(created["id"].(float64))
	base := fmt.Sprintf("/api/v1/networks/%d/edges", networkID)

	// Default: paginated current version.
	resp, page := doJSON(t, srv, http.MethodGet, base, key, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), page["total_count"])
	assert.Equal(t, float64(1), page["version"])
	assert.Len(t, page["features"], 3)
	assert.Nil(t, page["next_cursor"])

	// Explicit version.
	resp, page = doJSON(t, srv, http.MethodGet, base+"?version=1", key, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, page["features"], 3)

	// Unknown version.
	resp, _ = doJSON(t, srv, http.MethodGet, base+"?version=42", key, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Version and timestamp cannot be combined.
	resp, _ = doJSON(t, srv, http.MethodGet, base+"?version=1&timestamp=2026-01-01T00:00:00Z", key, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Bad timestamp format.
	resp, _ = doJSON(t, srv, http.MethodGet, base+"?timestamp=yesterday", key, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// No edges were valid before the network existed.
	resp, _ = doJSON(t, srv, http.MethodGet, base+"?timestamp=2000-01-01T00:00:00Z", key, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Limit out of range.
	resp, _ = doJSON(t, srv, http.MethodGet, base+"?limit=0", key, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestNetworkEdges_CursorPagination(t *testing.T) {
	srv := newTestServer(t)
	_, key := signupCustomer(t, srv, "acme")

	_, created := doJSON(t, srv, http.MethodPost, "/api/v1/networks", key, map[string]interface{}{
		"name": "net",
		"data": roadCollection("r1", "r2", "r3"),
	})
	networkID := int64(created["id"].(float64))
	base := fmt.Sprintf("/api/v1/networks/%d/edges?limit=1", networkID)

	seen := 0
	url := base
	for {
		resp, page := doJSON(t, srv, http.MethodGet, url, key, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, page["features"], 1)
		assert.Equal(t, float64(3), page["total_count"])
		seen++

		cursor, ok := page["next_cursor"].(string)
		if !ok {
			break
		}
		url = base + "&cursor=" + cursor
	}
	assert.Equal(t, 3, seen)
}

func TestNetworkAccess_CrossTenantForbidden(t *testing.T) {
	srv := newTestServer(t)
	_, ownerKey := signupCustomer(t, srv, "owner")
	_, otherKey := signupCustomer(t, srv, "other")

	_, created := doJSON(t, srv, http.MethodPost, "/api/v1/networks", ownerKey, map[string]interface{}{
		"name": "private",
		"data": roadCollection("r1"),
	})
	networkID := int64(created["id"].(float64))

	resp, _ := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/networks/%d", networkID), otherKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, fmt.Sprintf("/api/v1/networks/%d/edges", networkID), otherKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/v1/networks/99999", ownerKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateNetwork_InvalidTopology(t *testing.T) {
	srv := newTestServer(t)
	_, key := signupCustomer(t, srv, "acme")

	resp, _ := doJSON(t, srv, http.MethodPost, "/api/v1/networks", key, map[string]interface{}{
		"name": "broken",
		"data": map[string]interface{}{"type": "GeometryCollection"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
