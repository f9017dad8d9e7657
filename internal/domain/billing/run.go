// Package billing holds the results of billing runs and the read models
// of alerts and spending statistics.
package billing

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/money"
)

var ErrInvalidRun = errors.New("billing run requires an owner and a target date")

// Outcome messages reported per subscription.
const (
	MessageCharged              = "charged"
	MessageAutoRenewDisabled    = "auto-renew disabled"
	MessageNoPaymentAsset       = "no payment asset"
	MessagePaymentAssetNotFound = "payment asset not found"
	MessageInsufficientBalance  = "insufficient balance"
	MessageConcurrentModified   = "concurrent modification"
)

// DeclinedError rejects one charge with an outcome message. Nothing the
// charge wrote is kept.
type DeclinedError struct {
	Message string
}

func (e DeclinedError) Error() string {
	return "charge declined: " + e.Message
}

// Outcome is the result of billing one subscription.
type Outcome struct {
	SubscriptionID   uuid.UUID   `json:"subscription_id"`
	SubscriptionName string      `json:"subscription_name"`
	Amount           money.Money `json:"amount"`
	AssetID          *uuid.UUID  `json:"asset_id"`
	Success          bool        `json:"success"`
	Message          string      `json:"message"`
}

// RunResult reports one billing run. It is returned to the caller and never persisted.
type RunResult struct {
	ProcessedDate  time.Time `json:"processed_date"`
	TotalProcessed int       `json:"total_processed"`
	Successful     int       `json:"successful"`
	Failed         int       `json:"failed"`
	Results        []Outcome `json:"results"`
}

// NewRunResult derives the counts from outcomes, keeping their order.
func NewRunResult(processedDate time.Time, outcomes []Outcome) *RunResult {
	r := &RunResult{
		ProcessedDate: processedDate,
		Results:       outcomes,
	}
	if r.Results == nil {
		r.Results = []Outcome{}
	}
	for _, o := range r.Results {
		if o.Success {
			r.Successful++
		} else {
			r.Failed++
		}
	}
	r.TotalProcessed = len(r.Results)
	return r
}

// RunResultMessage is published to Kafka after a run requested over Kafka.
type RunResultMessage struct {
	RunID         uuid.UUID  `json:"run_id"`
	OwnerID       uuid.UUID  `json:"owner_id"`
	TargetDate    string     `json:"target_date"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Result        *RunResult `json:"result,omitempty"`
	Error         string     `json:"error,omitempty"`
	CompletedAt   time.Time  `json:"completed_at"`
}
