package handler

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

// Amounts are accepted as decimal strings or JSON numbers and always
// returned as decimal strings. Dates are YYYY-MM-DD.

// CreateAssetRequest represents a request to create a new asset
type CreateAssetRequest struct {
	Name     string      `json:"name" binding:"required"`
	Type     string      `json:"type" binding:"required"`
	Balance  money.Money `json:"balance"`
	Currency string      `json:"currency"`
}

// UpdateAssetRequest edits descriptive fields. The balance only moves through transactions.
type UpdateAssetRequest struct {
	Name     *string `json:"name"`
	Type     *string `json:"type"`
	Currency *string `json:"currency"`
}

// AssetResponse represents an asset in API responses
type AssetResponse struct {
	ID        string `json:"id"`
	OwnerID   string `json:"owner_id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	Currency  string `json:"currency"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TotalAssetsResponse is the sum of every asset balance of the owner
type TotalAssetsResponse struct {
	Total   string `json:"total"`
	OwnerID string `json:"owner_id"`
}

// CreateSubscriptionRequest represents a request to create a new subscription
type CreateSubscriptionRequest struct {
	Name            string      `json:"name" binding:"required"`
	Category        string      `json:"category" binding:"required"`
	Amount          money.Money `json:"amount"`
	BillingCycle    string      `json:"billing_cycle" binding:"required"`
	NextBillingDate string      `json:"next_billing_date" binding:"required"`
	AutoRenew       *bool       `json:"auto_renew"`
	AssetID         *string     `json:"asset_id"`
	Status          string      `json:"status"`
}

// UpdateSubscriptionRequest is a partial edit. An explicit "asset_id": null unlinks the asset.
type UpdateSubscriptionRequest struct {
	Name         *string      `json:"name"`
	Category     *string      `json:"category"`
	Amount       *money.Money `json:"amount"`
	BillingCycle *string      `json:"billing_cycle"`
	AutoRenew    *bool        `json:"auto_renew"`
	AssetID      optionalID   `json:"asset_id"`
	Status       *string      `json:"status"`
}

// SubscriptionResponse represents a subscription in API responses
type SubscriptionResponse struct {
	ID              string  `json:"id"`
	OwnerID         string  `json:"owner_id"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	Amount          string  `json:"amount"`
	BillingCycle    string  `json:"billing_cycle"`
	NextBillingDate string  `json:"next_billing_date"`
	AutoRenew       bool    `json:"auto_renew"`
	AssetID         *string `json:"asset_id"`
	Status          string  `json:"status"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// CreateTransactionRequest represents a request to record a manual transaction
type CreateTransactionRequest struct {
	Type           string      `json:"type" binding:"required"`
	Category       string      `json:"category" binding:"required"`
	Amount         money.Money `json:"amount"`
	Date           string      `json:"date" binding:"required"`
	Description    *string     `json:"description"`
	SubscriptionID *string     `json:"subscription_id"`
	AssetID        *string     `json:"asset_id"`
}

// TransactionQuery holds the list filters of GET /transactions
type TransactionQuery struct {
	Type           string `form:"type"`
	Category       string `form:"category"`
	SubscriptionID string `form:"subscription_id"`
	AssetID        string `form:"asset_id"`
	StartDate      string `form:"start_date"`
	EndDate        string `form:"end_date"`
	Limit          int    `form:"limit,default=50" binding:"min=1,max=500"`
	Offset         int    `form:"offset,default=0" binding:"min=0"`
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID             string  `json:"id"`
	OwnerID        string  `json:"owner_id"`
	Type           string  `json:"type"`
	Category       string  `json:"category"`
	Amount         string  `json:"amount"`
	Date           string  `json:"date"`
	Description    *string `json:"description"`
	SubscriptionID *string `json:"subscription_id"`
	AssetID        *string `json:"asset_id"`
	CreatedAt      string  `json:"created_at"`
}

// BillingProcessRequest names the date a billing run bills up to. Empty means today.
type BillingProcessRequest struct {
	TargetDate string `json:"target_date"`
}

// BillingResultItem is the outcome of billing one subscription
type BillingResultItem struct {
	SubscriptionID   string  `json:"subscription_id"`
	SubscriptionName string  `json:"subscription_name"`
	Amount           string  `json:"amount"`
	AssetID          *string `json:"asset_id"`
	Success          bool    `json:"success"`
	Message          string  `json:"message"`
}

// BillingResultResponse reports one billing run
type BillingResultResponse struct {
	ProcessedDate  string              `json:"processed_date"`
	TotalProcessed int                 `json:"total_processed"`
	Successful     int                 `json:"successful"`
	Failed         int                 `json:"failed"`
	Results        []BillingResultItem `json:"results"`
}

// BillingRunAcceptedResponse is returned when a run is queued
type BillingRunAcceptedResponse struct {
	RunID      string `json:"run_id"`
	TargetDate string `json:"target_date"`
	Status     string `json:"status"`
}

// BillingAlertResponse represents one upcoming charge
type BillingAlertResponse struct {
	SubscriptionID   string  `json:"subscription_id"`
	SubscriptionName string  `json:"subscription_name"`
	Amount           string  `json:"amount"`
	BillingDate      string  `json:"billing_date"`
	AssetID          *string `json:"asset_id"`
	AssetName        *string `json:"asset_name"`
	DaysUntilBilling int     `json:"days_until_billing"`
}

// ChargeResponse is a journaled subscription charge
type ChargeResponse struct {
	TransactionID    string `json:"transaction_id"`
	RunID            string `json:"run_id"`
	SubscriptionID   string `json:"subscription_id"`
	SubscriptionName string `json:"subscription_name"`
	AssetID          string `json:"asset_id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	BalanceAfter     string `json:"balance_after"`
	BillingDate      string `json:"billing_date"`
	NextBillingDate  string `json:"next_billing_date"`
	ChargedAt        string `json:"charged_at"`
}

type MonthlySpendingResponse struct {
	Year          int    `json:"year"`
	Month         int    `json:"month"`
	TotalSpending string `json:"total_spending"`
}

type CategorySpendingItem struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

type CategorySpendingResponse struct {
	Categories []CategorySpendingItem `json:"categories"`
	Total      string                 `json:"total"`
}

type SubscriptionSpendingResponse struct {
	Year                      int    `json:"year"`
	Month                     int    `json:"month"`
	TotalSubscriptionSpending string `json:"total_subscription_spending"`
}

type AssetDistributionItem struct {
	AssetID    string `json:"asset_id"`
	AssetName  string `json:"asset_name"`
	AssetType  string `json:"asset_type"`
	Balance    string `json:"balance"`
	Percentage string `json:"percentage"`
}

type AssetDistributionResponse struct {
	Assets      []AssetDistributionItem `json:"assets"`
	TotalAssets string                  `json:"total_assets"`
}

// OverviewResponse bundles the monthly dashboard figures
type OverviewResponse struct {
	MonthlySpending      MonthlySpendingResponse      `json:"monthly_spending"`
	SubscriptionSpending SubscriptionSpendingResponse `json:"subscription_spending"`
	CategorySpending     CategorySpendingResponse     `json:"category_spending"`
	AssetDistribution    AssetDistributionResponse    `json:"asset_distribution"`
}

// MonthQuery selects a calendar month
type MonthQuery struct {
	Year  int `form:"year" binding:"required,min=1"`
	Month int `form:"month" binding:"required,min=1,max=12"`
}

// DateRangeQuery selects an inclusive date range
type DateRangeQuery struct {
	StartDate string `form:"start_date" binding:"required"`
	EndDate   string `form:"end_date" binding:"required"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=10" binding:"min=1,max=100"`
}

// optionalID tells an absent field apart from an explicit null
type optionalID struct {
	Set   bool
	Value *string
}

func (o *optionalID) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

func mapAssetToResponse(a *asset.Asset) AssetResponse {
	return AssetResponse{
		ID:        a.ID.String(),
		OwnerID:   a.OwnerID.String(),
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.String(),
		Currency:  a.Currency,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.Format(time.RFC3339),
	}
}

func mapSubscriptionToResponse(s *subscription.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:              s.ID.String(),
		OwnerID:         s.OwnerID.String(),
		Name:            s.Name,
		Category:        string(s.Category),
		Amount:          s.Amount.String(),
		BillingCycle:    string(s.BillingCycle),
		NextBillingDate: shared.FormatDate(s.NextBillingDate),
		AutoRenew:       s.AutoRenew,
		AssetID:         idString(s.AssetID),
		Status:          string(s.Status),
		CreatedAt:       s.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       s.UpdatedAt.Format(time.RFC3339),
	}
}

func mapTransactionToResponse(t *transaction.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:             t.ID.String(),
		OwnerID:        t.OwnerID.String(),
		Type:           string(t.Type),
		Category:       string(t.Category),
		Amount:         t.Amount.String(),
		Date:           shared.FormatDate(t.Date),
		Description:    t.Description,
		SubscriptionID: idString(t.SubscriptionID),
		AssetID:        idString(t.AssetID),
		CreatedAt:      t.CreatedAt.Format(time.RFC3339),
	}
}

func mapRunResultToResponse(r *billing.RunResult) BillingResultResponse {
	items := make([]BillingResultItem, 0, len(r.Results))
	for _, o := range r.Results {
		items = append(items, BillingResultItem{
			SubscriptionID:   o.SubscriptionID.String(),
			SubscriptionName: o.SubscriptionName,
			Amount:           o.Amount.String(),
			AssetID:          idString(o.AssetID),
			Success:          o.Success,
			Message:          o.Message,
		})
	}
	return BillingResultResponse{
		ProcessedDate:  shared.FormatDate(r.ProcessedDate),
		TotalProcessed: r.TotalProcessed,
		Successful:     r.Successful,
		Failed:         r.Failed,
		Results:        items,
	}
}

func mapAlertToResponse(a billing.Alert) BillingAlertResponse {
	return BillingAlertResponse{
		SubscriptionID:   a.SubscriptionID.String(),
		SubscriptionName: a.SubscriptionName,
		Amount:           a.Amount.String(),
		BillingDate:      shared.FormatDate(a.BillingDate),
		AssetID:          idString(a.AssetID),
		AssetName:        a.AssetName,
		DaysUntilBilling: a.DaysUntilBilling,
	}
}

func mapJournalEntryToResponse(e *journal.Entry) ChargeResponse {
	return ChargeResponse{
		TransactionID:    e.TransactionID.String(),
		RunID:            e.RunID.String(),
		SubscriptionID:   e.SubscriptionID.String(),
		SubscriptionName: e.SubscriptionName,
		AssetID:          e.AssetID.String(),
		Amount:           e.Amount,
		Currency:         e.Currency,
		BalanceAfter:     e.BalanceAfter,
		BillingDate:      e.BillingDate,
		NextBillingDate:  e.NextBillingDate,
		ChargedAt:        e.ChargedAt.Format(time.RFC3339),
	}
}

func mapMonthlySpending(m *billing.MonthlySpending) MonthlySpendingResponse {
	return MonthlySpendingResponse{Year: m.Year, Month: m.Month, TotalSpending: m.TotalSpending.String()}
}

func mapSubscriptionSpending(s *billing.SubscriptionSpending) SubscriptionSpendingResponse {
	return SubscriptionSpendingResponse{Year: s.Year, Month: s.Month, TotalSubscriptionSpending: s.TotalSubscriptionSpending.String()}
}

func mapCategorySpending(c *billing.CategorySpending) CategorySpendingResponse {
	items := make([]CategorySpendingItem, 0, len(c.Categories))
	for _, g := range c.Categories {
		items = append(items, CategorySpendingItem{Category: g.Category, Amount: g.Amount.String()})
	}
	return CategorySpendingResponse{Categories: items, Total: c.Total.String()}
}

func mapAssetDistribution(d *billing.AssetDistribution) AssetDistributionResponse {
	items := make([]AssetDistributionItem, 0, len(d.Assets))
	for _, a := range d.Assets {
		items = append(items, AssetDistributionItem{
			AssetID:    a.AssetID.String(),
			AssetName:  a.AssetName,
			AssetType:  string(a.AssetType),
			Balance:    a.Balance.String(),
			Percentage: a.Percentage.StringFixed(-a.Percentage.Exponent()),
		})
	}
	return AssetDistributionResponse{Assets: items, TotalAssets: d.TotalAssets.String()}
}

func idString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

func parseOptionalID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
