package transaction

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

var (
	ErrInvalidType     = errors.New("transaction type must be income or expense")
	ErrInvalidCategory = errors.New("category must be one of subscription, food, salary, other")
	ErrInvalidAmount   = errors.New("transaction amount must be positive")
	ErrMissingDate     = errors.New("transaction date is required")
)

type Type string

const (
	TypeIncome  Type = "income"
	TypeExpense Type = "expense"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeIncome, TypeExpense:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

type Category string

const (
	CategorySubscription Category = "subscription"
	CategoryFood         Category = "food"
	CategorySalary       Category = "salary"
	CategoryOther        Category = "other"
)

func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategorySubscription, CategoryFood, CategorySalary, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Transaction is an immutable ledger entry. The sign of Amount is implied by Type.
type Transaction struct {
	ID             uuid.UUID   `json:"id"`
	OwnerID        uuid.UUID   `json:"owner_id"`
	Type           Type        `json:"type"`
	Category       Category    `json:"category"`
	Amount         money.Money `json:"amount"`
	Date           time.Time   `json:"date"`
	Description    *string     `json:"description"`
	SubscriptionID *uuid.UUID  `json:"subscription_id"`
	AssetID        *uuid.UUID  `json:"asset_id"`
	CreatedAt      time.Time   `json:"created_at"`
}

// Params carries the fields of a manually entered transaction.
type Params struct {
	Type           Type
	Category       Category
	Amount         money.Money
	Date           time.Time
	Description    *string
	SubscriptionID *uuid.UUID
	AssetID        *uuid.UUID
}

// NewTransaction validates p and builds a transaction for ownerID.
func NewTransaction(ownerID uuid.UUID, p Params) (*Transaction, error) {
	if _, err := ParseType(string(p.Type)); err != nil {
		return nil, err
	}
	if _, err := ParseCategory(string(p.Category)); err != nil {
		return nil, err
	}
	if !p.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if p.Date.IsZero() {
		return nil, ErrMissingDate
	}

	var description *string
	if p.Description != nil {
		if d := strings.TrimSpace(*p.Description); d != "" {
			description = &d
		}
	}

	return &Transaction{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Type:           p.Type,
		Category:       p.Category,
		Amount:         p.Amount,
		Date:           shared.DateOf(p.Date),
		Description:    description,
		SubscriptionID: p.SubscriptionID,
		AssetID:        p.AssetID,
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// NewSubscriptionCharge builds the expense recorded by a successful billing.
func NewSubscriptionCharge(ownerID, subscriptionID, assetID uuid.UUID, name string, amount money.Money, date time.Time) *Transaction {
	description := "Subscription charge: " + name
	return &Transaction{
		ID:             uuid.New(),
		OwnerID:        ownerID,
		Type:           TypeExpense,
		Category:       CategorySubscription,
		Amount:         amount,
		Date:           shared.DateOf(date),
		Description:    &description,
		SubscriptionID: &subscriptionID,
		AssetID:        &assetID,
		CreatedAt:      time.Now().UTC(),
	}
}
