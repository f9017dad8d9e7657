// Package postgres provides the PostgreSQL ledger store: repositories for assets,
// subscriptions, transactions and the outbox, plus the statistics queries.
// Every query is scoped by owner and runs against either the pool or a pgx.Tx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

const assetColumns = `id, owner_id, name, type, balance, currency, version, created_at, updated_at`

// AssetRepository implements the asset.Repository interface for PostgreSQL
type AssetRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewAssetRepository creates a new PostgreSQL asset repository.
func NewAssetRepository(logger *slog.Logger, db *persistence.PostgresDB) asset.Repository {
	return &AssetRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx returns a repository bound to tx
func (r *AssetRepository) WithTx(tx pgx.Tx) asset.Repository {
	return &AssetRepository{
		querier: tx,
		logger:  r.logger,
	}
}

func (r *AssetRepository) Create(ctx context.Context, a *asset.Asset) error {
	query := `
		INSERT INTO assets (id, owner_id, name, type, balance, currency, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		a.ID,
		a.OwnerID,
		a.Name,
		a.Type,
		a.Balance,
		a.Currency,
		a.Version,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create asset", "asset_id", a.ID.String(), "error", err)
		return fmt.Errorf("failed to create asset: %w", err)
	}

	return nil
}

// GetByID retrieves an owner's asset
func (r *AssetRepository) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE id = $1 AND owner_id = $2
	`

	a, err := scanAsset(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, asset.ErrAssetNotFound{AssetID: id}
		}
		r.logger.Error("Failed to get asset", "asset_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get asset: %w", err)
	}

	return a, nil
}

// List returns all assets of an owner, oldest first
func (r *AssetRepository) List(ctx context.Context, ownerID uuid.UUID) ([]*asset.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE owner_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.querier.Query(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list assets", "owner_id", ownerID.String(), "error", err)
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	assets := []*asset.Asset{}
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over assets: %w", err)
	}

	return assets, nil
}

// Total sums the balances of all assets of an owner
func (r *AssetRepository) Total(ctx context.Context, ownerID uuid.UUID) (money.Money, error) {
	query := `
		SELECT COALESCE(SUM(balance), 0)
		FROM assets
		WHERE owner_id = $1
	`

	var total money.Money
	if err := r.querier.QueryRow(ctx, query, ownerID).Scan(&total); err != nil {
		r.logger.Error("Failed to total assets", "owner_id", ownerID.String(), "error", err)
		return money.Zero, fmt.Errorf("failed to total assets: %w", err)
	}

	return total, nil
}

// UpdateDetails persists name, type and currency. The balance column is never written here.
func (r *AssetRepository) UpdateDetails(ctx context.Context, a *asset.Asset) error {
	query := `
		UPDATE assets
		SET name = $1, type = $2, currency = $3, version = $4, updated_at = $5
		WHERE id = $6 AND owner_id = $7 AND version = $8
	`

	result, err := r.querier.Exec(ctx, query,
		a.Name,
		a.Type,
		a.Currency,
		a.Version,
		a.UpdatedAt,
		a.ID,
		a.OwnerID,
		a.Version-1, // Check previous version for optimistic locking
	)
	if err != nil {
		r.logger.Error("Failed to update asset", "asset_id", a.ID.String(), "error", err)
		return fmt.Errorf("failed to update asset: %w", err)
	}

	if result.RowsAffected() == 0 {
		return asset.ErrConcurrentModification{AssetID: a.ID}
	}

	return nil
}

// Delete removes an asset that no subscription or transaction references
func (r *AssetRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		DELETE FROM assets
		WHERE id = $1 AND owner_id = $2
	`

	result, err := r.querier.Exec(ctx, query, id, ownerID)
	if err != nil {
		if pgErrorCode(err) == pgForeignKeyViolation {
			return asset.ErrAssetInUse
		}
		r.logger.Error("Failed to delete asset", "asset_id", id.String(), "error", err)
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	if result.RowsAffected() == 0 {
		return asset.ErrAssetNotFound{AssetID: id}
	}

	return nil
}

// LockForUpdate obtains a row lock on the asset and returns its current state.
// Lock timeouts and deadlocks surface as ErrConcurrentModification.
func (r *AssetRepository) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	query := `
		SELECT ` + assetColumns + `
		FROM assets
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`

	a, err := scanAsset(r.querier.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, asset.ErrAssetNotFound{AssetID: id}
		}
		if isContention(err) {
			return nil, asset.ErrConcurrentModification{AssetID: id}
		}
		r.logger.Error("Failed to lock asset for update", "asset_id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock asset for update: %w", err)
	}

	return a, nil
}

// Debit subtracts amount if the version still matches and the balance covers it
func (r *AssetRepository) Debit(ctx context.Context, id uuid.UUID, amount money.Money, version int) error {
	query := `
		UPDATE assets
		SET balance = balance - $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3 AND balance >= $1
	`

	return r.applyDelta(ctx, query, "debit", id, amount, version)
}

// Credit adds amount if the version still matches
func (r *AssetRepository) Credit(ctx context.Context, id uuid.UUID, amount money.Money, version int) error {
	query := `
		UPDATE assets
		SET balance = balance + $1, version = version + 1, updated_at = NOW()
		WHERE id = $2 AND version = $3
	`

	return r.applyDelta(ctx, query, "credit", id, amount, version)
}

func (r *AssetRepository) applyDelta(ctx context.Context, query, op string, id uuid.UUID, amount money.Money, version int) error {
	result, err := r.querier.Exec(ctx, query, amount, id, version)
	if err != nil {
		if isContention(err) {
			return asset.ErrConcurrentModification{AssetID: id}
		}
		r.logger.Error("Failed to "+op+" asset", "asset_id", id.String(), "amount", amount.String(), "error", err)
		return fmt.Errorf("failed to %s asset: %w", op, err)
	}

	if result.RowsAffected() == 0 {
		return asset.ErrConcurrentModification{AssetID: id}
	}

	return nil
}

func scanAsset(row pgx.Row) (*asset.Asset, error) {
	var a asset.Asset
	err := row.Scan(
		&a.ID,
		&a.OwnerID,
		&a.Name,
		&a.Type,
		&a.Balance,
		&a.Currency,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
