package handler

import (
	"log/slog"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/cycle"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
)

func newSubscriptionRouter(svc *MockSubscriptionService, history *MockHistoryService) http.Handler {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	h := NewSubscriptionHandler(logger, svc, history)

	router := setupTestRouter()
	router.POST("/subscriptions", h.Create)
	router.GET("/subscriptions", h.List)
	router.GET("/subscriptions/:id", h.GetByID)
	router.PUT("/subscriptions/:id", h.Update)
	router.DELETE("/subscriptions/:id", h.Delete)
	router.GET("/subscriptions/:id/charges", h.Charges)
	return router
}

func TestSubscriptionHandler_Create(t *testing.T) {
	ownerID := uuid.New()
	assetID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		svc.On("CreateSubscription", mock.Anything, ownerID, mock.MatchedBy(func(p subscription.Params) bool {
			return p.Name == "Netflix" &&
				p.Amount.String() == "15.99" &&
				p.BillingCycle == cycle.Monthly &&
				p.NextBillingDate.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) &&
				p.AutoRenew &&
				p.AssetID != nil && *p.AssetID == assetID
		})).Return(&subscription.Subscription{
			ID:              uuid.New(),
			OwnerID:         ownerID,
			Name:            "Netflix",
			Category:        subscription.CategoryVideo,
			Amount:          money.MustParse("15.99"),
			BillingCycle:    cycle.Monthly,
			NextBillingDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			AutoRenew:       true,
			AssetID:         &assetID,
			Status:          subscription.StatusActive,
		}, nil)

		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodPost, "/subscriptions", ownerID, map[string]interface{}{
			"name":              "Netflix",
			"category":          "video",
			"amount":            "15.99",
			"billing_cycle":     "monthly",
			"next_billing_date": "2024-01-31",
			"asset_id":          assetID.String(),
		})

		assert.Equal(t, http.StatusCreated, rr.Code)
		var body SubscriptionResponse
		decodeData(t, rr, &body)
		assert.Equal(t, "2024-01-31", body.NextBillingDate)
		assert.Equal(t, "15.99", body.Amount)
		if assert.NotNil(t, body.AssetID) {
			assert.Equal(t, assetID.String(), *body.AssetID)
		}
		svc.AssertExpectations(t)
	})

	t.Run("BadDate", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodPost, "/subscriptions", ownerID, map[string]interface{}{
			"name": "X", "category": "video", "amount": "1", "billing_cycle": "monthly", "next_billing_date": "31/01/2024",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		svc.AssertNotCalled(t, "CreateSubscription")
	})

	t.Run("InvalidCycle", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		svc.On("CreateSubscription", mock.Anything, ownerID, mock.Anything).Return(nil, cycle.ErrInvalidCycle)

		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodPost, "/subscriptions", ownerID, map[string]interface{}{
			"name": "X", "category": "video", "amount": "1", "billing_cycle": "daily", "next_billing_date": "2024-01-01",
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("AssetOfAnotherOwner", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		svc.On("CreateSubscription", mock.Anything, ownerID, mock.Anything).Return(nil, asset.ErrAssetNotFound{AssetID: assetID})

		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodPost, "/subscriptions", ownerID, map[string]interface{}{
			"name": "X", "category": "video", "amount": "1", "billing_cycle": "weekly", "next_billing_date": "2024-01-01", "asset_id": assetID.String(),
		})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestSubscriptionHandler_List(t *testing.T) {
	ownerID := uuid.New()

	t.Run("StatusFilter", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		svc.On("ListSubscriptions", mock.Anything, ownerID, mock.MatchedBy(func(s *subscription.Status) bool {
			return s != nil && *s == subscription.StatusPaused
		})).Return([]*subscription.Subscription{}, nil)

		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodGet, "/subscriptions?status=paused", ownerID, nil)
		assert.Equal(t, http.StatusOK, rr.Code)
		svc.AssertExpectations(t)
	})

	t.Run("UnknownStatus", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodGet, "/subscriptions?status=expired", ownerID, nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSubscriptionHandler_Update(t *testing.T) {
	ownerID := uuid.New()
	subID := uuid.New()

	tests := []struct {
		name    string
		body    string
		matches func(subscription.Changes) bool
	}{
		{
			name: "ExplicitNullClearsAsset",
			body: `{"asset_id":null}`,
			matches: func(c subscription.Changes) bool {
				return c.ClearAsset && c.AssetID == nil
			},
		},
		{
			name: "AbsentAssetLeavesLink",
			body: `{"auto_renew":false}`,
			matches: func(c subscription.Changes) bool {
				return !c.ClearAsset && c.AssetID == nil && c.AutoRenew != nil && !*c.AutoRenew
			},
		},
		{
			name: "StatusAndCycle",
			body: `{"status":"canceled","billing_cycle":"yearly"}`,
			matches: func(c subscription.Changes) bool {
				return c.Status != nil && *c.Status == subscription.StatusCanceled &&
					c.BillingCycle != nil && *c.BillingCycle == cycle.Yearly
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockSubscriptionService{}
			svc.On("UpdateSubscription", mock.Anything, ownerID, subID, mock.MatchedBy(tt.matches)).
				Return(&subscription.Subscription{ID: subID}, nil)

			rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodPut, "/subscriptions/"+subID.String(), ownerID, tt.body)
			assert.Equal(t, http.StatusOK, rr.Code)
			svc.AssertExpectations(t)
		})
	}

	t.Run("Contended", func(t *testing.T) {
		svc := &MockSubscriptionService{}
		svc.On("UpdateSubscription", mock.Anything, ownerID, subID, mock.Anything).
			Return(nil, subscription.ErrConcurrentModification{SubscriptionID: subID})

		rr := doRequest(t, newSubscriptionRouter(svc, nil), http.MethodPut, "/subscriptions/"+subID.String(), ownerID, `{"name":"x"}`)
		assert.Equal(t, http.StatusConflict, rr.Code)
	})
}

func TestSubscriptionHandler_DeleteAndCharges(t *testing.T) {
	ownerID := uuid.New()
	subID := uuid.New()

	svc := &MockSubscriptionService{}
	svc.On("DeleteSubscription", mock.Anything, ownerID, subID).Return(subscription.ErrSubscriptionNotFound{SubscriptionID: subID})
	history := &MockHistoryService{}
	history.On("GetSubscriptionCharges", mock.Anything, ownerID, subID, 1, 10).Return([]*journal.Entry{
		{TransactionID: uuid.New(), SubscriptionID: subID, Amount: "15.99", BalanceAfter: "84.01", BillingDate: "2024-01-31"},
	}, nil)
	router := newSubscriptionRouter(svc, history)

	rr := doRequest(t, router, http.MethodDelete, "/subscriptions/"+subID.String(), ownerID, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = doRequest(t, router, http.MethodGet, "/subscriptions/"+subID.String()+"/charges", ownerID, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	var charges []ChargeResponse
	decodeData(t, rr, &charges)
	if assert.Len(t, charges, 1) {
		assert.Equal(t, "84.01", charges[0].BalanceAfter)
	}
}
