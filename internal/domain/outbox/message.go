package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// Message stores a committed charge for reliable projection into the journal
type Message struct {
	ID             int64               `json:"id"`
	TransactionID  uuid.UUID           `json:"transaction_id"`
	SubscriptionID uuid.UUID           `json:"subscription_id"`
	OwnerID        uuid.UUID           `json:"owner_id"`
	Payload        json.RawMessage     `json:"payload"`
	Status         shared.OutboxStatus `json:"status"`
	Attempts       int                 `json:"attempts"`
	CreatedAt      time.Time           `json:"created_at"`
	LastAttemptAt  *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage wraps a charge for the outbox. The ids are copied out of the
// payload so the row can be located without decoding it.
func NewMessage(entry *journal.Entry) (*Message, error) {
	payload, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}

	return &Message{
		TransactionID:  entry.TransactionID,
		SubscriptionID: entry.SubscriptionID,
		OwnerID:        entry.OwnerID,
		Payload:        payload,
		Status:         shared.OutboxStatusPending,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// JournalEntry extracts the charge record from the payload
func (m *Message) JournalEntry() (*journal.Entry, error) {
	var entry journal.Entry
	if err := json.Unmarshal(m.Payload, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
