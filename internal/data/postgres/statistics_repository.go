package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

// StatisticsRepository runs the read-only aggregations behind the statistics endpoints.
// Each method is one statement and so sees a single snapshot.
type StatisticsRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewStatisticsRepository(logger *slog.Logger, db *persistence.PostgresDB) billing.StatisticsReader {
	return &StatisticsRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *StatisticsRepository) SumExpenses(ctx context.Context, ownerID uuid.UUID, from, to time.Time, category *transaction.Category) (money.Money, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE owner_id = $1 AND type = $2 AND date BETWEEN $3 AND $4
	`
	args := []any{ownerID, transaction.TypeExpense, from, to}
	if category != nil {
		query = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE owner_id = $1 AND type = $2 AND date BETWEEN $3 AND $4 AND category = $5
	`
		args = append(args, *category)
	}

	var total money.Money
	if err := r.querier.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		r.logger.Error("Failed to sum expenses", "owner_id", ownerID.String(), "error", err)
		return money.Zero, fmt.Errorf("failed to sum expenses: %w", err)
	}

	return total, nil
}

func (r *StatisticsRepository) ExpensesByCategory(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]billing.CategoryAmount, error) {
	query := `
		SELECT category, SUM(amount) AS total
		FROM transactions
		WHERE owner_id = $1 AND type = $2 AND date BETWEEN $3 AND $4
		GROUP BY category
		ORDER BY total DESC, category ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID, transaction.TypeExpense, from, to)
	if err != nil {
		r.logger.Error("Failed to group expenses by category", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to group expenses by category: %w", err)
	}
	defer rows.Close()

	groups := []billing.CategoryAmount{}
	for rows.Next() {
		var g billing.CategoryAmount
		if err := rows.Scan(&g.Category, &g.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over category totals: %w", err)
	}

	return groups, nil
}

func (r *StatisticsRepository) AssetBalances(ctx context.Context, ownerID uuid.UUID) ([]billing.AssetBalance, error) {
	query := `
		SELECT id, name, type, balance
		FROM assets
		WHERE owner_id = $1
		ORDER BY balance DESC, name ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to read asset balances", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to read asset balances: %w", err)
	}
	defer rows.Close()

	balances := []billing.AssetBalance{}
	for rows.Next() {
		var b billing.AssetBalance
		if err := rows.Scan(&b.AssetID, &b.AssetName, &b.AssetType, &b.Balance); err != nil {
			return nil, fmt.Errorf("failed to scan asset balance: %w", err)
		}
		balances = append(balances, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over asset balances: %w", err)
	}

	return balances, nil
}
