package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/subscription-billing-ledger/internal/domain/billing"
)

// WorkerPoolBillingService bounds how many billing runs execute at once
type WorkerPoolBillingService struct {
	baseService BillingService
	pool        *ants.Pool
	logger      *slog.Logger
}

type WorkerPoolConfig struct {
	Size int
}

type runOutcome struct {
	result *billing.RunResult
	err    error
}

func NewWorkerPoolBillingService(
	baseService BillingService,
	config WorkerPoolConfig,
	logger *slog.Logger,
) (*WorkerPoolBillingService, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPoolBillingService{
		baseService: baseService,
		pool:        pool,
		logger:      logger,
	}, nil
}

// ProcessBilling runs the billing on a pool worker and waits for its result
// or for ctx to end, whichever comes first.
func (s *WorkerPoolBillingService) ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) (*billing.RunResult, error) {
	s.logger.Info("Submitting billing run to worker pool",
		"owner_id", ownerID.String(),
		"running_workers", s.pool.Running(),
	)

	resultChan := make(chan runOutcome, 1)
	err := s.pool.Submit(func() {
		result, err := s.baseService.ProcessBilling(ctx, ownerID, targetDate)
		resultChan <- runOutcome{result: result, err: err}
	})
	if err != nil {
		s.logger.Error("Failed to submit billing run to worker pool",
			"owner_id", ownerID.String(),
			"error", err,
		)
		return nil, err
	}

	select {
	case out := <-resultChan:
		return out.result, out.err
	case <-ctx.Done():
		s.logger.Warn("Stopped waiting for billing run",
			"owner_id", ownerID.String(),
			"error", ctx.Err(),
		)
		return nil, ctx.Err()
	}
}

// Shutdown gracefully shuts down the worker pool.
func (s *WorkerPoolBillingService) Shutdown() {
	s.logger.Info("Shutting down worker pool", "running_workers", s.pool.Running())
	s.pool.Release()
}

// Running returns the number of running workers in the pool.
func (s *WorkerPoolBillingService) Running() int {
	return s.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (s *WorkerPoolBillingService) Capacity() int {
	return s.pool.Cap()
}
