package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/subscription-billing-ledger/internal/config"
	"github.com/subscription-billing-ledger/internal/domain/outbox"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// Outbox results reported to the OutboxRecorder.
const (
	ResultJournaled = "journaled"
	ResultRetried   = "retried"
	ResultFailed    = "failed"
)

// OutboxRecorder counts outbox results. *observability.Metrics satisfies it.
type OutboxRecorder interface {
	IncrOutbox(result string)
}

// Poller projects pending outbox messages into the charge journal
type Poller struct {
	outboxRepo       outbox.Repository
	journalPublisher JournalPublisher
	metrics          OutboxRecorder
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	journalPublisher JournalPublisher,
	metrics OutboxRecorder,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		journalPublisher: journalPublisher,
		metrics:          metrics,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting Outbox Poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox Poller stopping due to context cancellation.")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		logger := p.logger.With("outbox_id", msg.ID, "transaction_id", msg.TransactionID.String())

		err := p.journalPublisher.PublishToJournal(ctx, msg)
		if err == nil {
			p.record(ResultJournaled)
			continue
		}

		logger.Error("Failed to journal outbox message", "previous_attempts", msg.Attempts, "error", err)
		status, errRecord := p.outboxRepo.RecordFailure(ctx, msg.ID, p.maxRetryAttempts)
		if errRecord != nil {
			logger.Error("Failed to record journal failure for outbox message", "error", errRecord)
			continue
		}

		if status == shared.OutboxStatusFailedToPublish {
			logger.Warn("Max retry attempts reached, outbox message marked FAILED_TO_PUBLISH",
				"attempts_made", msg.Attempts+1,
			)
			p.record(ResultFailed)
			continue
		}
		p.record(ResultRetried)
	}
	return nil
}

func (p *Poller) record(result string) {
	if p.metrics != nil {
		p.metrics.IncrOutbox(result)
	}
}
