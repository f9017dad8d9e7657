package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

// AssetService defines owner-scoped asset operations
type AssetService interface {
	// CreateAsset creates an asset with its opening balance
	CreateAsset(ctx context.Context, ownerID uuid.UUID, input AssetInput) (*asset.Asset, error)

	// GetAsset returns ErrAssetNotFound if the asset doesn't exist or belongs to another owner
	GetAsset(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error)
	ListAssets(ctx context.Context, ownerID uuid.UUID) ([]*asset.Asset, error)

	// TotalAssets sums the balances of every asset of the owner
	TotalAssets(ctx context.Context, ownerID uuid.UUID) (money.Money, error)

	// UpdateAsset changes descriptive fields only. The balance moves through transactions.
	UpdateAsset(ctx context.Context, ownerID, id uuid.UUID, changes AssetChanges) (*asset.Asset, error)

	// DeleteAsset returns ErrAssetInUse while subscriptions or transactions reference it
	DeleteAsset(ctx context.Context, ownerID, id uuid.UUID) error
}

// AssetInput carries the fields of a new asset
type AssetInput struct {
	Name           string
	Type           asset.Type
	OpeningBalance money.Money
	Currency       string
}

// AssetChanges is a partial asset edit
type AssetChanges struct {
	Name     *string
	Type     *asset.Type
	Currency *string
}

// SubscriptionService defines owner-scoped subscription operations
type SubscriptionService interface {
	// CreateSubscription validates the linked asset belongs to the owner
	CreateSubscription(ctx context.Context, ownerID uuid.UUID, params subscription.Params) (*subscription.Subscription, error)
	GetSubscription(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error)
	ListSubscriptions(ctx context.Context, ownerID uuid.UUID, status *subscription.Status) ([]*subscription.Subscription, error)
	UpdateSubscription(ctx context.Context, ownerID, id uuid.UUID, changes subscription.Changes) (*subscription.Subscription, error)
	DeleteSubscription(ctx context.Context, ownerID, id uuid.UUID) error
}

// TransactionService defines owner-scoped ledger operations
type TransactionService interface {
	// CreateTransaction records a manual transaction. When an asset is linked its
	// balance moves in the same database transaction.
	CreateTransaction(ctx context.Context, ownerID uuid.UUID, params transaction.Params) (*transaction.Transaction, error)

	// GetTransaction returns ErrTransactionNotFound if the transaction doesn't exist
	GetTransaction(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error)
	ListTransactions(ctx context.Context, ownerID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error)
}

// BillingService runs billing for the caller
type BillingService interface {
	// ProcessBilling runs billing synchronously and returns the run result
	ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time, correlationID string) (*billing.RunResult, error)

	// EnqueueRun publishes a billing run request for the billing processor
	EnqueueRun(ctx context.Context, ownerID uuid.UUID, targetDate time.Time, correlationID string) (*shared.BillingRunRequest, error)
}

// AlertService lists upcoming billings
type AlertService interface {
	// GetAlerts uses the configured horizon when days is nil
	GetAlerts(ctx context.Context, ownerID uuid.UUID, days *int) ([]billing.Alert, error)
}

// StatisticsService aggregates spending and balances
type StatisticsService interface {
	MonthlySpending(ctx context.Context, ownerID uuid.UUID, year, month int) (*billing.MonthlySpending, error)
	CategorySpending(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*billing.CategorySpending, error)
	SubscriptionSpending(ctx context.Context, ownerID uuid.UUID, year, month int) (*billing.SubscriptionSpending, error)
	AssetDistribution(ctx context.Context, ownerID uuid.UUID) (*billing.AssetDistribution, error)

	// Overview computes the monthly figures and the asset distribution concurrently
	Overview(ctx context.Context, ownerID uuid.UUID, year, month int) (*Overview, error)
}

// Overview bundles the dashboard figures of one month
type Overview struct {
	MonthlySpending      *billing.MonthlySpending
	SubscriptionSpending *billing.SubscriptionSpending
	CategorySpending     *billing.CategorySpending
	AssetDistribution    *billing.AssetDistribution
}

// HistoryService reads the charge journal
type HistoryService interface {
	// GetChargeHistory returns entries, the total count of the owner's entries, and any error
	GetChargeHistory(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error)

	// GetSubscriptionCharges returns one page of the charges of a subscription
	GetSubscriptionCharges(ctx context.Context, ownerID, subscriptionID uuid.UUID, page, perPage int) ([]*journal.Entry, error)
}
