package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

type MockAssetService struct {
	mock.Mock
}

func (m *MockAssetService) CreateAsset(ctx context.Context, ownerID uuid.UUID, input service.AssetInput) (*asset.Asset, error) {
	args := m.Called(ctx, ownerID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Asset), args.Error(1)
}

func (m *MockAssetService) GetAsset(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Asset), args.Error(1)
}

func (m *MockAssetService) ListAssets(ctx context.Context, ownerID uuid.UUID) ([]*asset.Asset, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*asset.Asset), args.Error(1)
}

func (m *MockAssetService) TotalAssets(ctx context.Context, ownerID uuid.UUID) (money.Money, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(money.Money), args.Error(1)
}

func (m *MockAssetService) UpdateAsset(ctx context.Context, ownerID, id uuid.UUID, changes service.AssetChanges) (*asset.Asset, error) {
	args := m.Called(ctx, ownerID, id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Asset), args.Error(1)
}

func (m *MockAssetService) DeleteAsset(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type MockSubscriptionService struct {
	mock.Mock
}

func (m *MockSubscriptionService) CreateSubscription(ctx context.Context, ownerID uuid.UUID, params subscription.Params) (*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) GetSubscription(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) ListSubscriptions(ctx context.Context, ownerID uuid.UUID, status *subscription.Status) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) UpdateSubscription(ctx context.Context, ownerID, id uuid.UUID, changes subscription.Changes) (*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, id, changes)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionService) DeleteSubscription(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

type MockTransactionService struct {
	mock.Mock
}

func (m *MockTransactionService) CreateTransaction(ctx context.Context, ownerID uuid.UUID, params transaction.Params) (*transaction.Transaction, error) {
	args := m.Called(ctx, ownerID, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) GetTransaction(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionService) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

type MockBillingService struct {
	mock.Mock
}

func (m *MockBillingService) ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time, correlationID string) (*billing.RunResult, error) {
	args := m.Called(ctx, ownerID, targetDate, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RunResult), args.Error(1)
}

func (m *MockBillingService) EnqueueRun(ctx context.Context, ownerID uuid.UUID, targetDate time.Time, correlationID string) (*shared.BillingRunRequest, error) {
	args := m.Called(ctx, ownerID, targetDate, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.BillingRunRequest), args.Error(1)
}

type MockAlertService struct {
	mock.Mock
}

func (m *MockAlertService) GetAlerts(ctx context.Context, ownerID uuid.UUID, days *int) ([]billing.Alert, error) {
	args := m.Called(ctx, ownerID, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.Alert), args.Error(1)
}

type MockStatisticsService struct {
	mock.Mock
}

func (m *MockStatisticsService) MonthlySpending(ctx context.Context, ownerID uuid.UUID, year, month int) (*billing.MonthlySpending, error) {
	args := m.Called(ctx, ownerID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.MonthlySpending), args.Error(1)
}

func (m *MockStatisticsService) CategorySpending(ctx context.Context, ownerID uuid.UUID, start, end time.Time) (*billing.CategorySpending, error) {
	args := m.Called(ctx, ownerID, start, end)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.CategorySpending), args.Error(1)
}

func (m *MockStatisticsService) SubscriptionSpending(ctx context.Context, ownerID uuid.UUID, year, month int) (*billing.SubscriptionSpending, error) {
	args := m.Called(ctx, ownerID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscriptionSpending), args.Error(1)
}

func (m *MockStatisticsService) AssetDistribution(ctx context.Context, ownerID uuid.UUID) (*billing.AssetDistribution, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.AssetDistribution), args.Error(1)
}

func (m *MockStatisticsService) Overview(ctx context.Context, ownerID uuid.UUID, year, month int) (*service.Overview, error) {
	args := m.Called(ctx, ownerID, year, month)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.Overview), args.Error(1)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) GetChargeHistory(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	args := m.Called(ctx, ownerID, page, perPage)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*journal.Entry), args.Get(1).(int64), args.Error(2)
}

func (m *MockHistoryService) GetSubscriptionCharges(ctx context.Context, ownerID, subscriptionID uuid.UUID, page, perPage int) ([]*journal.Entry, error) {
	args := m.Called(ctx, ownerID, subscriptionID, page, perPage)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

// setupTestRouter mirrors the production middleware that handlers depend on
func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CorrelationID(), middleware.Owner())
	return r
}

func doRequest(t *testing.T, router http.Handler, method, path string, ownerID uuid.UUID, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRequestWithHeaders(t, router, method, path, ownerID, body, nil)
}

func doRequestWithHeaders(t *testing.T, router http.Handler, method, path string, ownerID uuid.UUID, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf *bytes.Buffer
	switch b := body.(type) {
	case nil:
		buf = &bytes.Buffer{}
	case string:
		buf = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		buf = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.OwnerIDHeader, ownerID.String())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

// decodeData unmarshals the envelope's data field into out and returns the envelope
func decodeData(t *testing.T, rr *httptest.ResponseRecorder, out interface{}) Response {
	t.Helper()

	var envelope struct {
		Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &envelope), "Failed to unmarshal top-level response")
	if out != nil {
		require.NotEmpty(t, envelope.Data, "'data' field should not be empty")
		require.NoError(t, json.Unmarshal(envelope.Data, out))
	}
	return envelope.Response
}
