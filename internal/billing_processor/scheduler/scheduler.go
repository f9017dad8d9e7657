// Package scheduler enqueues a daily billing run for every owner with due
// subscriptions. It only publishes requests; billing itself happens in the
// consumer.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// OwnerLister finds owners with at least one due subscription
type OwnerLister interface {
	OwnersWithDue(ctx context.Context, targetDate time.Time) ([]uuid.UUID, error)
}

// RunRequestPublisher enqueues billing run requests
type RunRequestPublisher interface {
	PublishRunRequest(ctx context.Context, req *shared.BillingRunRequest) error
}

type Scheduler struct {
	owners    OwnerLister
	publisher RunRequestPublisher
	interval  time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

func NewScheduler(owners OwnerLister, publisher RunRequestPublisher, interval time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		owners:    owners,
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
		logger:    logger,
	}
}

// Start enqueues runs immediately and then once per interval until ctx is canceled
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting billing scheduler", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("Scheduled billing enqueue failed", "error", err)
		}
		select {
		case <-ctx.Done():
			s.logger.Info("Billing scheduler stopping due to context cancellation.")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce enqueues one run per owner for today's UTC date and returns how many were enqueued
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	today := shared.DateOf(s.now().UTC())

	owners, err := s.owners.OwnersWithDue(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("failed to list owners with due subscriptions: %w", err)
	}

	enqueued := 0
	for _, owner := range owners {
		req := &shared.BillingRunRequest{
			RunID:         uuid.New(),
			OwnerID:       owner,
			TargetDate:    shared.FormatDate(today),
			CorrelationID: "scheduler-" + uuid.NewString(),
			RequestedAt:   s.now().UTC(),
		}
		if err := s.publisher.PublishRunRequest(ctx, req); err != nil {
			s.logger.Error("Failed to enqueue scheduled billing run", "owner_id", owner.String(), "error", err)
			continue
		}
		enqueued++
	}

	s.logger.Info("Scheduled billing runs enqueued",
		"target_date", shared.FormatDate(today),
		"owners", len(owners),
		"enqueued", enqueued,
	)
	return enqueued, nil
}
