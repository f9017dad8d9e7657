package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

const transactionColumns = `id, owner_id, type, category, amount, date, description, subscription_id, asset_id, created_at`

// TransactionRepository implements the transaction.Repository interface for PostgreSQL
type TransactionRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

func NewTransactionRepository(logger *slog.Logger, db *persistence.PostgresDB) transaction.Repository {
	return &TransactionRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

func (r *TransactionRepository) WithTx(tx pgx.Tx) transaction.Repository {
	return &TransactionRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	query := `
		INSERT INTO transactions (id, owner_id, type, category, amount, date, description, subscription_id, asset_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.OwnerID,
		t.Type,
		t.Category,
		t.Amount,
		t.Date,
		t.Description,
		t.SubscriptionID,
		t.AssetID,
		t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create transaction", "transaction_id", t.ID.String(), "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1 AND owner_id = $2
	`

	t, err := scanTransaction(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, transaction.ErrTransactionNotFound{TransactionID: id}
		}
		r.logger.Error("Failed to get transaction", "transaction_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	return t, nil
}

// List returns an owner's transactions newest first, narrowed by filter
func (r *TransactionRepository) List(ctx context.Context, ownerID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error) {
	query, args := buildTransactionQuery(ownerID, filter)

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list transactions", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	txs := []*transaction.Transaction{}
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over transactions: %w", err)
	}

	return txs, nil
}

func buildTransactionQuery(ownerID uuid.UUID, f transaction.Filter) (string, []any) {
	var sb strings.Builder
	args := []any{ownerID}
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	sb.WriteString("SELECT " + transactionColumns + " FROM transactions WHERE owner_id = $1")
	if f.Type != nil {
		sb.WriteString(" AND type = " + arg(*f.Type))
	}
	if f.Category != nil {
		sb.WriteString(" AND category = " + arg(*f.Category))
	}
	if f.SubscriptionID != nil {
		sb.WriteString(" AND subscription_id = " + arg(*f.SubscriptionID))
	}
	if f.AssetID != nil {
		sb.WriteString(" AND asset_id = " + arg(*f.AssetID))
	}
	if f.StartDate != nil {
		sb.WriteString(" AND date >= " + arg(*f.StartDate))
	}
	if f.EndDate != nil {
		sb.WriteString(" AND date <= " + arg(*f.EndDate))
	}
	sb.WriteString(" ORDER BY date DESC, created_at DESC, id DESC")
	if f.Limit > 0 {
		sb.WriteString(" LIMIT " + arg(f.Limit))
	}
	if f.Offset > 0 {
		sb.WriteString(" OFFSET " + arg(f.Offset))
	}

	return sb.String(), args
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	err := row.Scan(
		&t.ID,
		&t.OwnerID,
		&t.Type,
		&t.Category,
		&t.Amount,
		&t.Date,
		&t.Description,
		&t.SubscriptionID,
		&t.AssetID,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
