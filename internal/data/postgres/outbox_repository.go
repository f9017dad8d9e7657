package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/subscription-billing-ledger/internal/domain/outbox"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

const outboxColumns = `id, transaction_id, subscription_id, owner_id, payload, status, attempts, created_at, last_attempt_at`

// OutboxRepository keeps charge records in charge_outbox until the poller
// has copied them into the journal
type OutboxRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewOutboxRepository(logger *slog.Logger, db *persistence.PostgresDB) outbox.Repository {
	return &OutboxRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx binds the repository to tx so the outbox row commits together with the charge.
func (r *OutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return &OutboxRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create inserts the record and assigns its sequence id. A second record for
// the same charge transaction is rejected with ErrDuplicateMessage.
func (r *OutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	err := r.querier.QueryRow(ctx, `
		INSERT INTO charge_outbox (transaction_id, subscription_id, owner_id, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		message.TransactionID,
		message.SubscriptionID,
		message.OwnerID,
		message.Payload,
		message.Status,
		message.Attempts,
		message.CreatedAt,
	).Scan(&message.ID)
	if err == nil {
		return nil
	}

	if pgErrorCode(err) == pgUniqueViolation {
		return outbox.ErrDuplicateMessage{TransactionID: message.TransactionID}
	}
	r.logger.Error("Failed to queue charge for journaling",
		"transaction_id", message.TransactionID.String(),
		"subscription_id", message.SubscriptionID.String(),
		"error", err,
	)
	return fmt.Errorf("failed to create outbox message: %w", err)
}

// GetPending returns up to limit pending records in charge order
func (r *OutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	rows, err := r.querier.Query(ctx, `
		SELECT `+outboxColumns+`
		FROM charge_outbox
		WHERE status = $1
		ORDER BY created_at ASC, id ASC
		LIMIT $2
	`, shared.OutboxStatusPending, limit)
	if err != nil {
		r.logger.Error("Failed to get pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, scanOutboxMessage)
	if err != nil {
		r.logger.Error("Failed to read pending outbox messages", "error", err)
		return nil, fmt.Errorf("failed to read pending outbox messages: %w", err)
	}
	return messages, nil
}

func scanOutboxMessage(row pgx.CollectableRow) (*outbox.Message, error) {
	var m outbox.Message
	err := row.Scan(
		&m.ID,
		&m.TransactionID,
		&m.SubscriptionID,
		&m.OwnerID,
		&m.Payload,
		&m.Status,
		&m.Attempts,
		&m.CreatedAt,
		&m.LastAttemptAt,
	)
	return &m, err
}

// UpdateStatus sets the status and stamps last_attempt_at
func (r *OutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	result, err := r.querier.Exec(ctx, `
		UPDATE charge_outbox
		SET status = $1, last_attempt_at = $2
		WHERE id = $3
	`, status, time.Now().UTC(), id)
	if err != nil {
		r.logger.Error("Failed to update outbox message status",
			"id", id,
			"status", string(status),
			"error", err,
		)
		return fmt.Errorf("failed to update outbox message status: %w", err)
	}

	if result.RowsAffected() == 0 {
		return outbox.ErrMessageNotFound{ID: id}
	}
	return nil
}

// RecordFailure bumps attempts and, in the same statement, moves the record
// to FAILED_TO_PUBLISH when the new count reaches maxAttempts
func (r *OutboxRepository) RecordFailure(ctx context.Context, id int64, maxAttempts int) (shared.OutboxStatus, error) {
	var status shared.OutboxStatus
	err := r.querier.QueryRow(ctx, `
		UPDATE charge_outbox
		SET attempts = attempts + 1,
		    last_attempt_at = $1,
		    status = CASE WHEN attempts + 1 >= $2 THEN $3 ELSE status END
		WHERE id = $4
		RETURNING status
	`, time.Now().UTC(), maxAttempts, shared.OutboxStatusFailedToPublish, id).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", outbox.ErrMessageNotFound{ID: id}
		}
		r.logger.Error("Failed to record outbox failure", "id", id, "error", err)
		return "", fmt.Errorf("failed to record outbox failure: %w", err)
	}
	return status, nil
}
