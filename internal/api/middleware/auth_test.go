package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roadgraph/roadgraph-backend/internal/repository"
	"github.com/roadgraph/roadgraph-backend/internal/service"
	"github.com/roadgraph/roadgraph-backend/migrations"
)

func newAuthFixture(t *testing.T) (*service.CustomerService, string) {
	t.Helper()
	repo, err := repository.NewSQLiteRepository(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	schema, err := migrations.Schema("sqlite")
	if err != nil {
		t.Fatalf("Failed to load schema: %v", err)
	}
	if err := repo.RunMigrations(schema); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	customers := service.NewCustomerService(repo)
	if _, err := customers.Create(context.Background(), "acme", "valid-key"); err != nil {
		t.Fatalf("Failed to create customer: %v", err)
	}
	return customers, "valid-key"
}

func authProbe(customers *service.CustomerService) (http.Handler, *bool, *int64) {
	reached := false
	var customerID int64
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		if c, ok := CustomerFrom(r.Context()); ok {
			customerID = c.ID
		}
		w.WriteHeader(http.StatusOK)
	})
	return Auth(customers)(inner), &reached, &customerID
}

func TestAuth_ValidKeyPutsCustomerInContext(t *testing.T) {
	customers, key := newAuthFixture(t)
	handler, reached, customerID := authProbe(customers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
	req.Header.Set("X-API-Key", key)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !*reached {
		t.Error("Expected request to reach the handler")
	}
	if *customerID == 0 {
		t.Error("Expected authenticated customer in context")
	}
}

func TestAuth_MissingKeyRejected(t *testing.T) {
	customers, _ := newAuthFixture(t)
	handler, reached, _ := authProbe(customers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
	if *reached {
		t.Error("Expected request to be blocked before the handler")
	}
}

func TestAuth_UnknownKeyRejected(t *testing.T) {
	customers, _ := newAuthFixture(t)
	handler, reached, _ := authProbe(customers)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
	if *reached {
		t.Error("Expected request to be blocked before the handler")
	}
}

func TestAuth_ExemptPaths(t *testing.T) {
	customers, _ := newAuthFixture(t)

	cases := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/health"},
		{http.MethodGet, "/metrics"},
		{http.MethodPost, "/api/v1/customers"},
	}
	for _, tc := range cases {
		handler, reached, _ := authProbe(customers)
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if !*reached {
			t.Errorf("Expected %s %s to bypass authentication", tc.method, tc.path)
		}
	}
}

func TestRateLimit_EnforcesBurst(t *testing.T) {
	handler := RateLimit(60, 2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK {
		t.Errorf("Expected first two requests to pass, got %v", codes)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("Expected third request to be limited, got %v", codes)
	}
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := RateLimit(0, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/networks", nil)
		req.RemoteAddr = "10.0.0.1:12345"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected all requests to pass with limiting disabled, got %d", rec.Code)
		}
	}
}
