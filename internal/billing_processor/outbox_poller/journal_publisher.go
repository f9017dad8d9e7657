package outbox_poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/outbox"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// JournalPublisher writes outbox messages into the charge journal
type JournalPublisher interface {
	PublishToJournal(ctx context.Context, message *outbox.Message) error
}

// JournalPublisherImpl implements JournalPublisher
type JournalPublisherImpl struct {
	outboxRepo  outbox.Repository
	journalRepo journal.Repository
	logger      *slog.Logger
}

func NewJournalPublisher(
	outboxRepo outbox.Repository,
	journalRepo journal.Repository,
	logger *slog.Logger,
) JournalPublisher {
	return &JournalPublisherImpl{
		outboxRepo:  outboxRepo,
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// PublishToJournal stores the charge carried by message and marks the message
// processed. Entries are keyed by transaction ID, so a retry after a partial
// failure does not duplicate the journal entry.
func (p *JournalPublisherImpl) PublishToJournal(ctx context.Context, message *outbox.Message) error {
	entry, err := message.JournalEntry()
	if err != nil {
		p.logger.Error("Failed to unmarshal journal entry from outbox payload",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if entry.CorrelationID != "" {
		logger = p.logger.With("correlation_id", entry.CorrelationID)
	}

	err = p.journalRepo.Create(ctx, entry)
	switch {
	case err == nil:
		logger.Info("Journaled charge", "transaction_id", entry.TransactionID, "subscription_id", entry.SubscriptionID)
	case errors.Is(err, journal.ErrDuplicateEntry{}):
		logger.Info("Charge already journaled", "transaction_id", entry.TransactionID)
	default:
		logger.Error("Failed to create journal entry in MongoDB", "transaction_id", entry.TransactionID, "error", err)
		return fmt.Errorf("failed to create journal entry %s: %w", entry.TransactionID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, shared.OutboxStatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "transaction_id", message.TransactionID, "error", err,
		)
		return fmt.Errorf("journal write for %s OK, but failed to mark outbox %d as PROCESSED: %w", message.TransactionID, message.ID, err)
	}

	return nil
}
