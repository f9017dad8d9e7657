package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/outbox"
)

type OutboxManagerImpl struct {
	outboxRepo outbox.Repository
	logger     *slog.Logger
}

func NewOutboxManager(outboxRepo outbox.Repository, logger *slog.Logger) service.OutboxManager {
	return &OutboxManagerImpl{
		outboxRepo: outboxRepo,
		logger:     logger,
	}
}

// CreateChargeEntry stores entry in the outbox within tx, so it is committed
// together with the charge it describes
func (m *OutboxManagerImpl) CreateChargeEntry(ctx context.Context, tx pgx.Tx, entry *journal.Entry) error {
	logger := m.logger
	if entry.CorrelationID != "" {
		logger = m.logger.With("correlation_id", entry.CorrelationID)
	}

	outboxMessage, err := outbox.NewMessage(entry)
	if err != nil {
		logger.Error("Failed to create new outbox message (marshal payload)",
			"transaction_id", entry.TransactionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message payload for tx %s: %w", entry.TransactionID.String(), err)
	}

	if err = m.outboxRepo.WithTx(tx).Create(ctx, outboxMessage); err != nil {
		logger.Error("Failed to create outbox message",
			"transaction_id", entry.TransactionID.String(),
			"subscription_id", entry.SubscriptionID.String(),
			"error", err,
		)
		return fmt.Errorf("failed to create outbox message for tx %s: %w", entry.TransactionID.String(), err)
	}
	logger.Debug("Outbox message created",
		"transaction_id", entry.TransactionID.String(),
		"outbox_id", outboxMessage.ID,
	)

	return nil
}
