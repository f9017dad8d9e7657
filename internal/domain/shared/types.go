package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrStoreUnavailable means the ledger store could not serve a call as a whole.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
	ErrInvalidOwner     = errors.New("owner id is required")
)

// OutboxStatus defines message publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// BillingRunRequest is the Kafka message asking for one billing run.
type BillingRunRequest struct {
	RunID         uuid.UUID `json:"run_id"`
	OwnerID       uuid.UUID `json:"owner_id"`
	TargetDate    string    `json:"target_date"` // YYYY-MM-DD
	CorrelationID string    `json:"correlation_id"`
	RequestedAt   time.Time `json:"requested_at"`
}
