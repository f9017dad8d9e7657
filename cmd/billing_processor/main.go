package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/subscription-billing-ledger/internal/billing_processor/components"
	"github.com/subscription-billing-ledger/internal/billing_processor/consumer"
	"github.com/subscription-billing-ledger/internal/billing_processor/outbox_poller"
	"github.com/subscription-billing-ledger/internal/billing_processor/scheduler"
	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/data/mongo"
	"github.com/subscription-billing-ledger/internal/data/postgres"
	"github.com/subscription-billing-ledger/internal/logger"
	"github.com/subscription-billing-ledger/internal/platform/messaging/consumers"
	"github.com/subscription-billing-ledger/internal/platform/messaging/producers"
	"github.com/subscription-billing-ledger/internal/platform/observability"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
	"github.com/subscription-billing-ledger/internal/platform/resilience"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("billing_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Billing Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	shutdownTracing, err := observability.InitTracing(appCtx, cfg.Application, cfg.Tracing)
	if err != nil {
		log.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	metrics := observability.NewMetrics("billing_processor")

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

	// Initialize repositories
	assetRepo := postgres.NewAssetRepository(log, postgresDB)
	subscriptionRepo := postgres.NewSubscriptionRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	journalRepo := mongo.NewJournalRepository(log, mongoDB.Database())
	if err := journalRepo.EnsureIndexes(appCtx); err != nil {
		log.Error("Failed to ensure journal indexes", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	breaker := resilience.NewCircuitBreaker("billing-results", cfg.Breaker, log)
	resultProducer, err := producers.NewResultProducer(log, &cfg.Kafka, breaker, metrics)
	if err != nil {
		log.Error("Failed to initialize billing result producer", "error", err)
		os.Exit(1)
	}

	// Initialize billing engine with separated concerns
	billingService, releaseEngine := components.CreateBillingService(
		postgresDB.Pool(),
		subscriptionRepo,
		assetRepo,
		transactionRepo,
		outboxRepo,
		metrics,
		log,
		cfg,
	)

	// Initialize billing request handler
	requestHandler := consumer.NewBillingRequestHandler(
		log.With("component", "billing_request_handler"),
		billingService,
		components.NewRunValidator(),
		resultProducer,
		dlqProducer, // Pass the DLQ producer
	)

	// Initialize outbox poller
	journalPublisher := outbox_poller.NewJournalPublisher(
		outboxRepo,
		journalRepo,
		log.With("component", "journal_publisher"),
	)
	poller := outbox_poller.NewPoller(
		&cfg.Outbox,
		outboxRepo,
		journalPublisher,
		metrics,
		log.With("component", "outbox_poller"),
	)

	var runProducer *producers.BillingRunProducer
	if cfg.Billing.SchedulerEnabled {
		runProducer, err = producers.NewBillingRunProducer(log, &cfg.Kafka)
		if err != nil {
			log.Error("Failed to initialize billing run producer for the scheduler", "error", err)
			os.Exit(1)
		}
	}

	metricsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           operationalMux(cfg, metrics, map[string]persistence.Pinger{"postgres": postgresDB, "mongodb": mongoDB}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(appCtx)

	// Kafka consumer
	g.Go(func() error {
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.BillingRequestTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Consume(gctx, requestHandler.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("kafka consumer error: %w", err)
		}
		return nil
	})

	// Outbox poller
	g.Go(func() error {
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(gctx)
		return nil
	})

	// Daily billing scheduler
	if runProducer != nil {
		sched := scheduler.NewScheduler(subscriptionRepo, runProducer, cfg.Billing.SchedulerInterval, log.With("component", "scheduler"))
		g.Go(func() error {
			log.Info("Starting billing scheduler", "interval", cfg.Billing.SchedulerInterval.String())
			sched.Start(gctx)
			return nil
		})
	}

	// Metrics and health endpoint
	g.Go(func() error {
		log.Info("Starting metrics server", "port", cfg.Server.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsServer.Shutdown(ctx)
	})

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case <-gctx.Done():
		log.Error("Service stopped unexpectedly")
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	waitErr := make(chan error, 1)
	go func() {
		waitErr <- g.Wait()
	}()

	var serviceErr error
	select {
	case serviceErr = <-waitErr:
		log.Info("All services stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Drain in-flight runs before closing what they write to
	if wpService, ok := billingService.(*service.WorkerPoolBillingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
	}
	releaseEngine()

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}
	if err = resultProducer.Close(); err != nil {
		log.Error("Error closing billing result producer", "error", err)
	}
	if runProducer != nil {
		if err = runProducer.Close(); err != nil {
			log.Error("Error closing billing run producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if err = shutdownTracing(shutdownCtx); err != nil {
		log.Error("Error flushing traces", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Billing Processor shutdown with errors", "error", serviceErr)
		os.Exit(1)
	}
	log.Info("Billing Processor shutdown completed successfully")
}

// operationalMux serves the liveness and readiness probes and, when enabled,
// the Prometheus registry
func operationalMux(cfg *config.Config, metrics *observability.Metrics, stores map[string]persistence.Pinger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		report, ready := persistence.CheckStores(r.Context(), 2*time.Second, stores)
		if !ready {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "stores": report})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ready", "stores": report})
	})
	if cfg.Metrics.Enabled {
		mux.Handle(cfg.Metrics.Path, metrics.Handler())
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
