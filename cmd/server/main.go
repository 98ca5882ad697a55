package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/DukeRupert/gatehouse/internal"
	"github.com/DukeRupert/gatehouse/internal/handler"
	"github.com/DukeRupert/gatehouse/internal/metrics"
	"github.com/DukeRupert/gatehouse/internal/middleware"
	"github.com/DukeRupert/gatehouse/internal/repository"
	"github.com/DukeRupert/gatehouse/internal/service"
)

func run() error {
	ctx := context.Background()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Run migrations over the stdlib driver; the pool below handles runtime traffic.
	migrateDB, err := sql.Open("pgx", cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	if err := migrateDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	if err := internal.RunMigrations(migrateDB); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	if err := migrateDB.Close(); err != nil {
		return fmt.Errorf("closing migration connection failed: %w", err)
	}

	// Initialize connection pool and store
	pool, err := repository.NewPool(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("pool initialization failed: %w", err)
	}
	defer pool.Close()
	logger.Info("Database ready")

	store := repository.NewStore(pool, cfg.FreeRequestLimit)

	// Initialize services
	entitlementService := service.NewEntitlementService(store, logger)
	quotaService := service.NewQuotaService(store, logger)
	redemptionService := service.NewRedemptionService(store, store, logger)
	admissionService := service.NewAdmissionService(quotaService, redemptionService)
	codeAdminService := service.NewCodeAdminService(store, logger)

	// Initialize handlers
	admissionHandler := handler.NewAdmissionHandler(admissionService, entitlementService, logger)
	codeHandler := handler.NewCodeHandler(redemptionService, codeAdminService, logger)

	// ==========================================================================
	// Create router and register routes
	// ==========================================================================

	loggingMw := middleware.NewRequestLoggingMiddleware(logger)
	metricsAuthMw := middleware.NewMetricsAuthMiddleware(cfg.MetricsUsername, cfg.MetricsPassword)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(loggingMw.Handler)
	r.Use(metrics.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus metrics (basic auth when configured)
	r.Method(http.MethodGet, "/metrics", metricsAuthMw.Handler(promhttp.Handler()))

	r.Route("/v1", func(r chi.Router) {
		admissionHandler.RegisterRoutes(r)
		codeHandler.RegisterRoutes(r)
	})

	// ==========================================================================
	// Start server
	// ==========================================================================

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	// Channel to listen for interrupt signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		logger.Info("Server started", "address", server.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	<-sigChan
	logger.Info("Shutdown signal received, initiating graceful shutdown...")

	// Create shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}

	logger.Info("Graceful shutdown complete")
	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
