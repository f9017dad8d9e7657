package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subscription-billing-ledger/internal/api_gateway"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/billing_processor/components"
	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/data/mongo"
	"github.com/subscription-billing-ledger/internal/data/postgres"
	"github.com/subscription-billing-ledger/internal/logger"
	"github.com/subscription-billing-ledger/internal/platform/messaging/producers"
	"github.com/subscription-billing-ledger/internal/platform/observability"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	shutdownTracing, err := observability.InitTracing(appCtx, cfg.Application, cfg.Tracing)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	metrics := observability.NewMetrics("api_gateway")

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Queued runs are optional; synchronous billing keeps working without Kafka
	runProducer, err := producers.NewBillingRunProducer(log, &cfg.Kafka)
	if err != nil {
		log.Warn("Billing run producer unavailable, POST /billing/runs will answer 503", "error", err)
		runProducer = nil
	}

	// Initialize repositories
	assetRepo := postgres.NewAssetRepository(log, postgresDB)
	subscriptionRepo := postgres.NewSubscriptionRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	statisticsRepo := postgres.NewStatisticsRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())
	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure journal indexes", "error", err)
		os.Exit(1)
	}

	// The gateway bills synchronous runs in-process with the same engine as the processor
	billingEngine, releaseEngine := components.CreateBillingService(
		postgresDB.Pool(),
		subscriptionRepo,
		assetRepo,
		transactionRepo,
		outboxRepo,
		metrics,
		log,
		cfg,
	)

	var runPublisher service.RunRequestPublisher
	if runProducer != nil {
		runPublisher = runProducer
	}

	// Initialize services
	services := api_gateway.Services{
		Assets:        service.NewAssetService(log, assetRepo),
		Subscriptions: service.NewSubscriptionService(log, subscriptionRepo, assetRepo),
		Transactions:  service.NewTransactionService(log, postgresDB.Pool(), transactionRepo, assetRepo, subscriptionRepo),
		Billing:       service.NewBillingService(log, billingEngine, runPublisher),
		Alerts:        service.NewAlertService(log, subscriptionRepo, cfg.Billing.AlertHorizonDays, nil),
		Statistics:    service.NewStatisticsService(log, statisticsRepo, cfg.Billing.PercentagePlaces),
		History:       service.NewHistoryService(log, journalRepo),
		Stores:        map[string]persistence.Pinger{"postgres": postgresDB, "mongodb": mongoDB},
	}

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, services, metrics)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before tearing down what they use
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	releaseEngine()

	if runProducer != nil {
		if err = runProducer.Close(); err != nil {
			log.Error("Error closing Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err = shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}
