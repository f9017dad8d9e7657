package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

// CategoryAmount is the expense total of one category.
type CategoryAmount struct {
	Category string
	Amount   money.Money
}

// AssetBalance is one row of the asset distribution input.
type AssetBalance struct {
	AssetID   uuid.UUID
	AssetName string
	AssetType asset.Type
	Balance   money.Money
}

// StatisticsReader runs read-only aggregations. Each call is a single
// statement, so it observes one consistent snapshot of the ledger.
type StatisticsReader interface {
	// SumExpenses totals expense amounts dated within [from, to], optionally for one category
	SumExpenses(ctx context.Context, ownerID uuid.UUID, from, to time.Time, category *transaction.Category) (money.Money, error)
	ExpensesByCategory(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]CategoryAmount, error)
	AssetBalances(ctx context.Context, ownerID uuid.UUID) ([]AssetBalance, error)
}

type MonthlySpending struct {
	Year          int
	Month         int
	TotalSpending money.Money
}

type CategorySpending struct {
	Categories []CategoryAmount
	Total      money.Money
}

type SubscriptionSpending struct {
	Year                      int
	Month                     int
	TotalSubscriptionSpending money.Money
}

type AssetShare struct {
	AssetBalance
	Percentage decimal.Decimal
}

type AssetDistribution struct {
	Assets      []AssetShare
	TotalAssets money.Money
}
