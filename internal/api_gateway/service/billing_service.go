package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	processor "github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// ErrQueueUnavailable is returned by EnqueueRun when no run request publisher is configured
var ErrQueueUnavailable = errors.New("billing run queue unavailable")

// RunRequestPublisher enqueues billing run requests
type RunRequestPublisher interface {
	PublishRunRequest(ctx context.Context, req *shared.BillingRunRequest) error
}

// BillingServiceImpl implements the BillingService interface
type BillingServiceImpl struct {
	engine    processor.BillingService
	publisher RunRequestPublisher
	logger    *slog.Logger
}

// NewBillingService creates a billing service. publisher may be nil, in which
// case only synchronous runs are available.
func NewBillingService(logger *slog.Logger, engine processor.BillingService, publisher RunRequestPublisher) BillingService {
	return &BillingServiceImpl{
		engine:    engine,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *BillingServiceImpl) ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time, correlationID string) (*billing.RunResult, error) {
	runID := uuid.New()
	ctx = processor.ContextWithRun(ctx, runID, correlationID)

	result, err := s.engine.ProcessBilling(ctx, ownerID, targetDate)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Billing run completed",
		"run_id", runID.String(),
		"owner_id", ownerID.String(),
		"target_date", shared.FormatDate(targetDate),
		"successful", result.Successful,
		"failed", result.Failed,
	)
	return result, nil
}

func (s *BillingServiceImpl) EnqueueRun(ctx context.Context, ownerID uuid.UUID, targetDate time.Time, correlationID string) (*shared.BillingRunRequest, error) {
	if s.publisher == nil {
		return nil, ErrQueueUnavailable
	}
	if ownerID == uuid.Nil || targetDate.IsZero() {
		return nil, billing.ErrInvalidRun
	}

	req := &shared.BillingRunRequest{
		RunID:         uuid.New(),
		OwnerID:       ownerID,
		TargetDate:    shared.FormatDate(targetDate),
		CorrelationID: correlationID,
		RequestedAt:   time.Now().UTC(),
	}
	if err := s.publisher.PublishRunRequest(ctx, req); err != nil {
		s.logger.Error("Failed to enqueue billing run",
			"owner_id", ownerID.String(),
			"run_id", req.RunID.String(),
			"error", err,
		)
		return nil, fmt.Errorf("%w: %w", ErrQueueUnavailable, err)
	}

	s.logger.Info("Billing run enqueued",
		"owner_id", ownerID.String(),
		"run_id", req.RunID.String(),
		"target_date", req.TargetDate,
	)
	return req, nil
}
