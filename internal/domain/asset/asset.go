package asset

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/money"
)

// DefaultCurrency is used when an asset is created without a currency.
const DefaultCurrency = "CNY"

// Common errors
var (
	ErrInsufficientFunds     = errors.New("insufficient balance")
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrNegativeBalance       = errors.New("opening balance cannot be negative")
	ErrEmptyName             = errors.New("asset name cannot be empty")
	ErrInvalidType           = errors.New("asset type must be one of bank, payment, cash, investment")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
	ErrAssetInUse            = errors.New("asset is referenced by subscriptions or transactions")
)

// Type classifies an asset.
type Type string

const (
	TypeBank       Type = "bank"
	TypePayment    Type = "payment"
	TypeCash       Type = "cash"
	TypeInvestment Type = "investment"
)

func ParseType(s string) (Type, error) {
	switch t := Type(s); t {
	case TypeBank, TypePayment, TypeCash, TypeInvestment:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

// Asset is an account holding a balance in a single currency.
// Balance changes only through Debit and Credit.
type Asset struct {
	ID        uuid.UUID   `json:"id"`
	OwnerID   uuid.UUID   `json:"owner_id"`
	Name      string      `json:"name"`
	Type      Type        `json:"type"`
	Balance   money.Money `json:"balance"`
	Currency  string      `json:"currency"`
	Version   int         `json:"version"` // For optimistic locking
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// NewAsset creates an asset with its opening balance.
func NewAsset(ownerID uuid.UUID, name string, typ Type, openingBalance money.Money, currency string) (*Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if _, err := ParseType(string(typ)); err != nil {
		return nil, err
	}
	if openingBalance.IsNegative() {
		return nil, ErrNegativeBalance
	}
	currency, err := normalizeCurrency(currency)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Asset{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Name:      name,
		Type:      typ,
		Balance:   openingBalance,
		Currency:  currency,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// UpdateDetails changes the descriptive fields. The balance is left alone.
func (a *Asset) UpdateDetails(name *string, typ *Type, currency *string) error {
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return ErrEmptyName
		}
		a.Name = trimmed
	}
	if typ != nil {
		if _, err := ParseType(string(*typ)); err != nil {
			return err
		}
		a.Type = *typ
	}
	if currency != nil {
		c, err := normalizeCurrency(*currency)
		if err != nil {
			return err
		}
		a.Currency = c
	}
	a.touch()
	return nil
}

// Debit subtracts amount from the balance.
func (a *Asset) Debit(amount money.Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !a.CanDebit(amount) {
		return ErrInsufficientFunds
	}
	a.Balance = a.Balance.Sub(amount)
	a.touch()
	return nil
}

// Credit adds amount to the balance.
func (a *Asset) Credit(amount money.Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	a.Balance = a.Balance.Add(amount)
	a.touch()
	return nil
}

// CanDebit checks if the balance covers amount.
func (a *Asset) CanDebit(amount money.Money) bool {
	return a.Balance.Cmp(amount) >= 0
}

func (a *Asset) touch() {
	a.UpdatedAt = time.Now().UTC()
	a.Version++
}

func normalizeCurrency(c string) (string, error) {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return DefaultCurrency, nil
	}
	if len(c) != 3 {
		return "", ErrInvalidCurrencyFormat
	}
	return c, nil
}
