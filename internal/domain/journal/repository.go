package journal

import (
	"context"

	"github.com/google/uuid"
)

// Repository manages charge journal persistence with pagination support
type Repository interface {
	Create(ctx context.Context, entry *Entry) error
	GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*Entry, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*Entry, error)
	ListBySubscription(ctx context.Context, ownerID, subscriptionID uuid.UUID, limit, offset int) ([]*Entry, error)
	CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error)
}

// ErrEntryNotFound indicates missing journal entry
type ErrEntryNotFound struct {
	TransactionID uuid.UUID
}

func (e ErrEntryNotFound) Error() string {
	return "journal entry not found: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrEntryNotFound
func (e ErrEntryNotFound) Is(target error) bool {
	t, ok := target.(ErrEntryNotFound)
	if !ok {
		return false
	}
	// If the target TransactionID is empty, consider it a match for any ErrEntryNotFound
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}

// ErrDuplicateEntry indicates the charge was already journaled
type ErrDuplicateEntry struct {
	TransactionID uuid.UUID
}

func (e ErrDuplicateEntry) Error() string {
	return "duplicate journal entry: " + e.TransactionID.String()
}

// Is implements the errors.Is interface for ErrDuplicateEntry
func (e ErrDuplicateEntry) Is(target error) bool {
	t, ok := target.(ErrDuplicateEntry)
	if !ok {
		return false
	}
	if t.TransactionID == uuid.Nil {
		return true
	}
	return e.TransactionID == t.TransactionID
}
