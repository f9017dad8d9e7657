package outbox

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// Repository stores the charge records waiting to be journaled
type Repository interface {
	Create(ctx context.Context, message *Message) error
	GetPending(ctx context.Context, limit int) ([]*Message, error)
	UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error
	// RecordFailure counts a failed journal attempt and gives up on the
	// message once maxAttempts is reached. It returns the resulting status.
	RecordFailure(ctx context.Context, id int64, maxAttempts int) (shared.OutboxStatus, error)
	WithTx(tx pgx.Tx) Repository
}

type ErrMessageNotFound struct {
	ID int64
}

func (e ErrMessageNotFound) Error() string {
	return "outbox message not found: " + strconv.FormatInt(e.ID, 10)
}

// ErrDuplicateMessage means a charge transaction already has its outbox row
type ErrDuplicateMessage struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateMessage) Error() string {
	return "charge already queued for journaling: " + e.TransactionID.String()
}
