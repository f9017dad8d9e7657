package api_gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subscription-billing-ledger/internal/api_gateway/handler"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/platform/observability"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

// Services bundles the application services the HTTP layer depends on
type Services struct {
	Assets        service.AssetService
	Subscriptions service.SubscriptionService
	Transactions  service.TransactionService
	Billing       service.BillingService
	Alerts        service.AlertService
	Statistics    service.StatisticsService
	History       service.HistoryService

	// Stores are pinged by GET /ready
	Stores map[string]persistence.Pinger
}

// Server handles HTTP requests and manages the application's lifecycle
type Server struct {
	logger          *slog.Logger // For structured logging
	httpServer      *http.Server // Underlying HTTP server
	httpRouter      *gin.Engine  // Gin router instance
	shutdownTimeout time.Duration
}

// NewServer creates and configures a new HTTP server with the given services.
// metrics may be nil.
func NewServer(log *slog.Logger, cfg *config.Config, services Services, metrics *observability.Metrics) *Server {
	if cfg.Application.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	httpRouter := gin.New()

	h := handlers{
		asset:        handler.NewAssetHandler(log, services.Assets),
		subscription: handler.NewSubscriptionHandler(log, services.Subscriptions, services.History),
		transaction:  handler.NewTransactionHandler(log, services.Transactions),
		billing:      handler.NewBillingHandler(log, services.Billing, services.Alerts, services.History),
		statistics:   handler.NewStatisticsHandler(log, services.Statistics),
	}

	metricsPath := cfg.Metrics.Path
	if !cfg.Metrics.Enabled {
		metrics = nil
	}
	setupRouter(log, httpRouter, h, services.Stores, metrics, metricsPath)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpRouter,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		logger:          log,
		httpServer:      httpServer,
		httpRouter:      httpRouter,
		shutdownTimeout: cfg.Server.ShutdownTimeout,
	}
}

// Handler exposes the configured router
func (s *Server) Handler() http.Handler {
	return s.httpRouter
}

// Start begins listening for HTTP requests
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server, waiting at most the configured shutdown timeout
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping HTTP server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	return nil
}
