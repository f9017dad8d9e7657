package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Upcoming is a subscription together with the name of its linked asset.
type Upcoming struct {
	Subscription *Subscription
	AssetName    *string
}

// Repository defines subscription persistence operations. Every read is scoped by owner.
type Repository interface {
	Create(ctx context.Context, sub *Subscription) error
	GetByID(ctx context.Context, ownerID, id uuid.UUID) (*Subscription, error)
	List(ctx context.Context, ownerID uuid.UUID, status *Status) ([]*Subscription, error)

	// Update persists every mutable field using the previous version as guard
	Update(ctx context.Context, sub *Subscription) error
	Delete(ctx context.Context, ownerID, id uuid.UUID) error

	// ListDue returns active subscriptions with next_billing_date <= targetDate,
	// ordered by next billing date then id
	ListDue(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) ([]*Subscription, error)

	// ListUpcoming returns active subscriptions billed within [from, to]
	ListUpcoming(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*Upcoming, error)

	// OwnersWithDue lists owners that have at least one due subscription
	OwnersWithDue(ctx context.Context, targetDate time.Time) ([]uuid.UUID, error)

	// LockForUpdate acquires a row lock for the remainder of the transaction
	LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*Subscription, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrSubscriptionNotFound indicates missing subscription
type ErrSubscriptionNotFound struct {
	SubscriptionID uuid.UUID
}

func (e ErrSubscriptionNotFound) Error() string {
	return "subscription not found: " + e.SubscriptionID.String()
}

func (e ErrSubscriptionNotFound) Is(target error) bool {
	t, ok := target.(ErrSubscriptionNotFound)
	if !ok {
		return false
	}
	return t.SubscriptionID == uuid.Nil || t.SubscriptionID == e.SubscriptionID
}

// ErrConcurrentModification indicates a failed version check or lock contention
type ErrConcurrentModification struct {
	SubscriptionID uuid.UUID
}

func (e ErrConcurrentModification) Error() string {
	return "concurrent modification detected for subscription: " + e.SubscriptionID.String()
}

func (e ErrConcurrentModification) Is(target error) bool {
	t, ok := target.(ErrConcurrentModification)
	if !ok {
		return false
	}
	return t.SubscriptionID == uuid.Nil || t.SubscriptionID == e.SubscriptionID
}
