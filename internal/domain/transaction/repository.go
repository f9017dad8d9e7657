package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Filter narrows List. Nil fields are ignored; dates are inclusive.
type Filter struct {
	Type           *Type
	Category       *Category
	SubscriptionID *uuid.UUID
	AssetID        *uuid.UUID
	StartDate      *time.Time
	EndDate        *time.Time
	Limit          int
	Offset         int
}

// Repository is append-only: there is no update or delete.
type Repository interface {
	Create(ctx context.Context, tx *Transaction) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Transaction, error)
	List(ctx context.Context, ownerID uuid.UUID, filter Filter) ([]*Transaction, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrTransactionNotFound indicates missing transaction
type ErrTransactionNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrTransactionNotFound) Error() string {
	return "transaction not found: " + e.TransactionID.String()
}

func (e ErrTransactionNotFound) Is(target error) bool {
	t, ok := target.(ErrTransactionNotFound)
	if !ok {
		return false
	}
	return t.TransactionID == uuid.Nil || t.TransactionID == e.TransactionID
}
