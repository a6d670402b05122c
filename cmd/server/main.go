package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/roadgraph/roadgraph-backend/internal/api/middleware"
	"github.com/roadgraph/roadgraph-backend/internal/api/rest"
	"github.com/roadgraph/roadgraph-backend/internal/config"
	"github.com/roadgraph/roadgraph-backend/internal/pkg/logger"
	"github.com/roadgraph/roadgraph-backend/internal/pkg/tracing"
	"github.com/roadgraph/roadgraph-backend/internal/repository"
	"github.com/roadgraph/roadgraph-backend/internal/service"
	"github.com/roadgraph/roadgraph-backend/migrations"
)

func main() {
	log.Println("🚀 RoadGraph Backend starting...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	appLog := logger.New(cfg.LogLevel)

	log.Printf("📋 Configuration loaded: port=%d, driver=%s", cfg.Port, cfg.DatabaseDriver)

	// Initialize tracing
	shutdownTracing, err := tracing.Init("roadgraph-backend", cfg.OTLPEndpoint, cfg.TraceSamplingRate)
	if err != nil {
		log.Fatalf("❌ Failed to initialize tracing: %v", err)
	}
	defer shutdownTracing()

	// Initialize database
	log.Println("💾 Initializing database...")
	var repo repository.Repository
	switch cfg.DatabaseDriver {
	case "postgres":
		repo, err = repository.NewPostgresRepository(cfg.DatabaseURL)
	default:
		repo, err = repository.NewSQLiteRepository(cfg.DatabasePath)
	}
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}
	defer repo.Close()

	// Run migrations
	migrationSQL, err := migrations.Schema(cfg.DatabaseDriver)
	if err != nil {
		log.Fatalf("❌ Could not load migration schema: %v", err)
	}
	if err := repo.RunMigrations(migrationSQL); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}
	log.Println("✅ Database migrations completed")

	// Initialize services
	customerService := service.NewCustomerService(repo)
	networkService := service.NewNetworkService(repo)
	log.Println("✅ Services initialized")

	// Setup HTTP router
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","service":"roadgraph-backend","version":"1.0.0"}`))
	}).Methods("GET")

	rest.SetupMetricsRoute(router)

	// API routes
	apiRouter := router.PathPrefix("/api/v1").Subrouter()
	handler := rest.NewHandler(customerService, networkService, cfg)
	rest.SetupRoutes(apiRouter, handler)

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logging(appLog))
	router.Use(middleware.Recovery(appLog))
	router.Use(middleware.RateLimit(cfg.RateLimitPerMin, cfg.RateLimitBurst))
	router.Use(middleware.Auth(customerService))

	// Setup CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-API-Key", "X-Request-ID"},
		AllowCredentials: true,
	})
	handlerWithCORS := c.Handler(router)

	requestTimeout := time.Duration(cfg.RequestTimeoutSec) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 30 * time.Second
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handlerWithCORS,
		ReadTimeout:  requestTimeout,
		WriteTimeout: requestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🌐 Server listening on port %d", cfg.Port)
		log.Printf("📡 API available at http://localhost:%d/api/v1", cfg.Port)
		log.Printf("❤️  Health check at http://localhost:%d/health", cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSec) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	}

	log.Println("✅ Server exited gracefully")
}
