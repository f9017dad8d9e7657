package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

type MockSubscriptionRepo struct {
	mock.Mock
}

func (m *MockSubscriptionRepo) Create(ctx context.Context, sub *subscription.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) List(ctx context.Context, ownerID uuid.UUID, status *subscription.Status) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) Update(ctx context.Context, sub *subscription.Subscription) error {
	return m.Called(ctx, sub).Error(0)
}

func (m *MockSubscriptionRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *MockSubscriptionRepo) ListDue(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) ([]*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, targetDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) ListUpcoming(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]*subscription.Upcoming, error) {
	args := m.Called(ctx, ownerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*subscription.Upcoming), args.Error(1)
}

func (m *MockSubscriptionRepo) OwnersWithDue(ctx context.Context, targetDate time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, targetDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockSubscriptionRepo) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*subscription.Subscription), args.Error(1)
}

func (m *MockSubscriptionRepo) WithTx(tx pgx.Tx) subscription.Repository {
	return m.Called(tx).Get(0).(subscription.Repository)
}

type MockAssetRepo struct {
	mock.Mock
}

func (m *MockAssetRepo) Create(ctx context.Context, a *asset.Asset) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAssetRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Asset), args.Error(1)
}

func (m *MockAssetRepo) List(ctx context.Context, ownerID uuid.UUID) ([]*asset.Asset, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*asset.Asset), args.Error(1)
}

func (m *MockAssetRepo) Total(ctx context.Context, ownerID uuid.UUID) (money.Money, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(money.Money), args.Error(1)
}

func (m *MockAssetRepo) UpdateDetails(ctx context.Context, a *asset.Asset) error {
	return m.Called(ctx, a).Error(0)
}

func (m *MockAssetRepo) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	return m.Called(ctx, ownerID, id).Error(0)
}

func (m *MockAssetRepo) LockForUpdate(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asset.Asset), args.Error(1)
}

func (m *MockAssetRepo) Debit(ctx context.Context, id uuid.UUID, amount money.Money, version int) error {
	return m.Called(ctx, id, amount, version).Error(0)
}

func (m *MockAssetRepo) Credit(ctx context.Context, id uuid.UUID, amount money.Money, version int) error {
	return m.Called(ctx, id, amount, version).Error(0)
}

func (m *MockAssetRepo) WithTx(tx pgx.Tx) asset.Repository {
	return m.Called(tx).Get(0).(asset.Repository)
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, tx *transaction.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepo) GetByID(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	args := m.Called(ctx, ownerID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) List(ctx context.Context, ownerID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error) {
	args := m.Called(ctx, ownerID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*transaction.Transaction), args.Error(1)
}

func (m *MockTransactionRepo) WithTx(tx pgx.Tx) transaction.Repository {
	return m.Called(tx).Get(0).(transaction.Repository)
}

type MockStatisticsReader struct {
	mock.Mock
}

func (m *MockStatisticsReader) SumExpenses(ctx context.Context, ownerID uuid.UUID, from, to time.Time, category *transaction.Category) (money.Money, error) {
	args := m.Called(ctx, ownerID, from, to, category)
	return args.Get(0).(money.Money), args.Error(1)
}

func (m *MockStatisticsReader) ExpensesByCategory(ctx context.Context, ownerID uuid.UUID, from, to time.Time) ([]billing.CategoryAmount, error) {
	args := m.Called(ctx, ownerID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.CategoryAmount), args.Error(1)
}

func (m *MockStatisticsReader) AssetBalances(ctx context.Context, ownerID uuid.UUID) ([]billing.AssetBalance, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]billing.AssetBalance), args.Error(1)
}

type MockJournalRepo struct {
	mock.Mock
}

func (m *MockJournalRepo) Create(ctx context.Context, entry *journal.Entry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockJournalRepo) GetByTransactionID(ctx context.Context, transactionID uuid.UUID) (*journal.Entry, error) {
	args := m.Called(ctx, transactionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) ListBySubscription(ctx context.Context, ownerID, subscriptionID uuid.UUID, limit, offset int) ([]*journal.Entry, error) {
	args := m.Called(ctx, ownerID, subscriptionID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*journal.Entry), args.Error(1)
}

func (m *MockJournalRepo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int64, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).(int64), args.Error(1)
}

// MockBillingEngine stands in for the billing processor
type MockBillingEngine struct {
	mock.Mock
}

func (m *MockBillingEngine) ProcessBilling(ctx context.Context, ownerID uuid.UUID, targetDate time.Time) (*billing.RunResult, error) {
	args := m.Called(ctx, ownerID, targetDate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.RunResult), args.Error(1)
}

type MockRunRequestPublisher struct {
	mock.Mock
}

func (m *MockRunRequestPublisher) PublishRunRequest(ctx context.Context, req *shared.BillingRunRequest) error {
	return m.Called(ctx, req).Error(0)
}
