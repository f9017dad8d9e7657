package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/money"
)

// Alert announces an upcoming billing within the alert horizon.
type Alert struct {
	SubscriptionID   uuid.UUID
	SubscriptionName string
	Amount           money.Money
	BillingDate      time.Time
	AssetID          *uuid.UUID
	AssetName        *string
	DaysUntilBilling int
}
