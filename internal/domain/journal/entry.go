package journal

import (
	"time"

	"github.com/google/uuid"
)

// Entry is the read-model record of one committed subscription charge.
// Amounts are decimal strings.
type Entry struct {
	TransactionID    uuid.UUID  `json:"transaction_id" bson:"transaction_id"`
	OwnerID          uuid.UUID  `json:"owner_id" bson:"owner_id"`
	RunID            uuid.UUID  `json:"run_id" bson:"run_id"`
	SubscriptionID   uuid.UUID  `json:"subscription_id" bson:"subscription_id"`
	SubscriptionName string     `json:"subscription_name" bson:"subscription_name"`
	AssetID          uuid.UUID  `json:"asset_id" bson:"asset_id"`
	Amount           string     `json:"amount" bson:"amount"`
	Currency         string     `json:"currency" bson:"currency"`
	BalanceAfter     string     `json:"balance_after" bson:"balance_after"`
	BillingDate      string     `json:"billing_date" bson:"billing_date"`           // YYYY-MM-DD
	NextBillingDate  string     `json:"next_billing_date" bson:"next_billing_date"` // YYYY-MM-DD
	CorrelationID    string     `json:"correlation_id,omitempty" bson:"correlation_id,omitempty"`
	ChargedAt        time.Time  `json:"charged_at" bson:"charged_at"`
	JournaledAt      *time.Time `json:"journaled_at,omitempty" bson:"journaled_at,omitempty"`
}
