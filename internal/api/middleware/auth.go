package middleware

import (
	"context"
	"net/http"

	"github.com/roadgraph/roadgraph-backend/internal/models"
	"github.com/roadgraph/roadgraph-backend/internal/service"
)

type contextKey int

const customerKey contextKey = iota

// WithCustomer stores the authenticated customer in the context.
func WithCustomer(ctx context.Context, c *models.Customer) context.Context {
	return context.WithValue(ctx, customerKey, c)
}

// CustomerFrom returns the authenticated customer from the context.
func CustomerFrom(ctx context.Context) (*models.Customer, bool) {
	c, ok := ctx.Value(customerKey).(*models.Customer)
	return c, ok
}

// Auth returns middleware that resolves the X-API-Key header to a customer
// and stores it in the request context. The identity it establishes is
// trusted downstream; handlers only check ownership, never the key itself.
//
// Health, metrics, and customer signup stay reachable without a key.
func Auth(customers *service.CustomerService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path := r.URL.Path
			if path == "/health" || path == "/metrics" ||
				(r.Method == http.MethodPost && path == "/api/v1/customers") {
				next.ServeHTTP(w, r)
				return
			}
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Authentication required"}`))
				return
			}
			customer, err := customers.GetByAPIKey(r.Context(), apiKey)
			if err != nil {
				w.Header().Set("WWW-Authenticate", "ApiKey")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Invalid API key"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCustomer(r.Context(), customer)))
		})
	}
}
