package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
)

// BillingService runs billing for one owner and target date.
type BillingService interface {
	ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) (*billing.RunResult, error)
}

// Charge identifies one subscription to bill inside a run
type Charge struct {
	RunID          uuid.UUID
	OwnerID        uuid.UUID
	SubscriptionID uuid.UUID
	TargetDate     time.Time
	CorrelationID  string
}

// ChargeResult is the outcome of one charge. Currency is set when money moved.
type ChargeResult struct {
	Outcome  billing.Outcome
	Currency string
}

// ChargeApplier bills one subscription inside tx. Any error rolls tx back;
// with a billing.DeclinedError the result still carries the failed outcome.
type ChargeApplier interface {
	Apply(ctx context.Context, tx pgx.Tx, charge Charge) (*ChargeResult, error)
}

// OutboxManager records a committed charge for projection into the journal
type OutboxManager interface {
	CreateChargeEntry(ctx context.Context, tx pgx.Tx, entry *journal.Entry) error
}

// RunValidator checks a billing run request before anything is read
type RunValidator interface {
	Validate(req *shared.BillingRunRequest) (time.Time, error)
}

// DueLister selects the subscriptions a run has to look at
type DueLister interface {
	ListDue(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) ([]*subscription.Subscription, error)
}

// RunRecorder receives billing metrics. *observability.Metrics satisfies it.
type RunRecorder interface {
	ObserveBillingRun(status string, d time.Duration)
	IncrCharge(outcome string)
	AddChargedAmount(currency string, amount float64)
}
