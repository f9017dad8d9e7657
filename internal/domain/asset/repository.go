package asset

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/subscription-billing-ledger/internal/domain/money"
)

// Repository defines asset persistence operations. Every read is scoped by owner.
type Repository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Asset, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]*Asset, error)
	Total(ctx context.Context, ownerID uuid.UUID) (money.Money, error)

	// UpdateDetails persists name, type and currency using the previous version as guard
	UpdateDetails(ctx context.Context, asset *Asset) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// LockForUpdate acquires a row lock for the remainder of the transaction
	LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*Asset, error)

	// Debit and Credit are conditional on version; Debit also on balance >= amount
	Debit(ctx context.Context, id uuid.UUID, amount money.Money, version int) error
	Credit(ctx context.Context, id uuid.UUID, amount money.Money, version int) error

	WithTx(tx pgx.Tx) Repository
}

// ErrConcurrentModification indicates a failed version check or lock contention
type ErrConcurrentModification struct {
	AssetID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for asset: " + e.AssetID.String()
}

// Is matches any ErrConcurrentModification when the target carries no ID
func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.AssetID == uuid.Nil || t.AssetID == e.AssetID
}

// ErrAssetNotFound indicates missing asset
type ErrAssetNotFound struct {
	AssetID uuid.UUID
}

func (e ErrAssetNotFound) Error() string {
	return "asset not found: " + e.AssetID.String()
}

func (e ErrAssetNotFound) Is(target error) bool {
	t, ok := target.(ErrAssetNotFound)
	if !ok {
		return false
	}
	return t.AssetID == uuid.Nil || t.AssetID == e.AssetID
}
