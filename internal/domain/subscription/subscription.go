package subscription

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/subscription-billing-ledger/internal/domain/cycle"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// Common errors
var (
	ErrEmptyName       = errors.New("subscription name cannot be empty")
	ErrInvalidAmount   = errors.New("subscription amount must be positive")
	ErrInvalidCategory = errors.New("category must be one of video, music, software, cloud, other")
	ErrInvalidStatus   = errors.New("status must be one of active, paused, canceled")
	ErrMissingDate     = errors.New("next billing date is required")
	// ErrNotDue means the subscription was no longer due once locked,
	// typically because a concurrent run already billed it.
	ErrNotDue = errors.New("subscription is not due")
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusCanceled Status = "canceled"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusActive, StatusPaused, StatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Category string

const (
	CategoryVideo    Category = "video"
	CategoryMusic    Category = "music"
	CategorySoftware Category = "software"
	CategoryCloud    Category = "cloud"
	CategoryOther    Category = "other"
)

func ParseCategory(s string) (Category, error) {
	switch c := Category(s); c {
	case CategoryVideo, CategoryMusic, CategorySoftware, CategoryCloud, CategoryOther:
		return c, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Subscription is a recurring payment obligation.
type Subscription struct {
	ID              uuid.UUID   `json:"id"`
	OwnerID         uuid.UUID   `json:"owner_id"`
	Name            string      `json:"name"`
	Category        Category    `json:"category"`
	Amount          money.Money `json:"amount"`
	BillingCycle    cycle.Cycle `json:"billing_cycle"`
	NextBillingDate time.Time   `json:"next_billing_date"`
	AutoRenew       bool        `json:"auto_renew"`
	AssetID         *uuid.UUID  `json:"asset_id"`
	Status          Status      `json:"status"`
	Version         int         `json:"version"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Params carries the owner-supplied fields of a new subscription.
type Params struct {
	Name            string
	Category        Category
	Amount          money.Money
	BillingCycle    cycle.Cycle
	NextBillingDate time.Time
	AutoRenew       bool
	AssetID         *uuid.UUID
	Status          Status
}

// NewSubscription validates p and builds an active subscription unless p says otherwise.
func NewSubscription(ownerID uuid.UUID, p Params) (*Subscription, error) {
	s := &Subscription{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		AutoRenew: p.AutoRenew,
		AssetID:   p.AssetID,
		Status:    StatusActive,
		Version:   1,
	}
	if p.Status != "" {
		s.Status = p.Status
	}
	if p.NextBillingDate.IsZero() {
		return nil, ErrMissingDate
	}
	s.NextBillingDate = shared.DateOf(p.NextBillingDate)

	if err := s.setName(p.Name); err != nil {
		return nil, err
	}
	if err := s.validate(p.Category, p.Amount, p.BillingCycle, s.Status); err != nil {
		return nil, err
	}
	s.Category = p.Category
	s.Amount = p.Amount
	s.BillingCycle = p.BillingCycle

	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return s, nil
}

// Changes is a partial owner edit. The next billing date is not editable.
type Changes struct {
	Name         *string
	Category     *Category
	Amount       *money.Money
	BillingCycle *cycle.Cycle
	AutoRenew    *bool
	AssetID      *uuid.UUID
	ClearAsset   bool
	Status       *Status
}

// Apply validates and applies c.
func (s *Subscription) Apply(c Changes) error {
	category, amount, billingCycle, status := s.Category, s.Amount, s.BillingCycle, s.Status
	if c.Category != nil {
		category = *c.Category
	}
	if c.Amount != nil {
		amount = *c.Amount
	}
	if c.BillingCycle != nil {
		billingCycle = *c.BillingCycle
	}
	if c.Status != nil {
		status = *c.Status
	}
	if err := s.validate(category, amount, billingCycle, status); err != nil {
		return err
	}
	if c.Name != nil {
		if err := s.setName(*c.Name); err != nil {
			return err
		}
	}

	s.Category, s.Amount, s.BillingCycle, s.Status = category, amount, billingCycle, status
	if c.AutoRenew != nil {
		s.AutoRenew = *c.AutoRenew
	}
	switch {
	case c.ClearAsset:
		s.AssetID = nil
	case c.AssetID != nil:
		id := *c.AssetID
		s.AssetID = &id
	}
	s.touch()
	return nil
}

// IsDue reports whether a run for targetDate selects s.
func (s *Subscription) IsDue(targetDate time.Time) bool {
	return s.Status == StatusActive && !s.NextBillingDate.After(shared.DateOf(targetDate))
}

// Advance moves the next billing date one cycle forward from its previous value.
func (s *Subscription) Advance() {
	s.NextBillingDate = cycle.NextBillingDate(s.NextBillingDate, s.BillingCycle)
	s.touch()
}

// Pause stops s from being selected by billing runs.
func (s *Subscription) Pause() {
	s.Status = StatusPaused
	s.touch()
}

func (s *Subscription) setName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	s.Name = name
	return nil
}

func (s *Subscription) validate(category Category, amount money.Money, billingCycle cycle.Cycle, status Status) error {
	if _, err := ParseCategory(string(category)); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !billingCycle.Valid() {
		return cycle.ErrInvalidCycle
	}
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	return nil
}

func (s *Subscription) touch() {
	s.UpdatedAt = time.Now().UTC()
	s.Version++
}
