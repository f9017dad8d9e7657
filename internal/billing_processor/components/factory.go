package components

import (
	"log/slog"

	"github.com/panjf2000/ants/v2"

	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/outbox"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

// CreateBillingService wires the billing engine with all its dependencies.
// The returned release func frees the worker pools.
func CreateBillingService(
	db persistence.TxBeginner,
	subscriptionRepo subscription.Repository,
	assetRepo asset.Repository,
	transactionRepo transaction.Repository,
	outboxRepo outbox.Repository,
	metrics service.RunRecorder,
	logger *slog.Logger,
	cfg *config.Config,
) (service.BillingService, func()) {
	outboxManager := NewOutboxManager(outboxRepo, logger.With("component", "outbox_manager"))
	applier := NewChargeApplier(
		subscriptionRepo,
		assetRepo,
		transactionRepo,
		outboxManager,
		cfg.Billing.LockTimeout,
		logger.With("component", "charge_applier"),
	)

	groupPool, err := ants.NewPool(cfg.WorkerPool.Size)
	if err != nil {
		logger.Error("Failed to create asset group pool, billing groups sequentially", "error", err)
		groupPool = nil
	}
	release := func() {
		if groupPool != nil {
			groupPool.Release()
		}
	}

	baseService := service.NewBillingService(
		db,
		subscriptionRepo,
		applier,
		groupPool,
		metrics,
		cfg.Billing.RunTimeout,
		logger.With("component", "billing_service"),
	)

	workerPoolService, err := service.NewWorkerPoolBillingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)
	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService, release
	}

	logger.Info("Created worker pool billing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService, func() {
		workerPoolService.Shutdown()
		release()
	}
}
