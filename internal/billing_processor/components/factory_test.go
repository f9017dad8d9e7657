package components

import (
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/config"
)

func TestCreateBillingService(t *testing.T) {
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	cfg := &config.Config{
		WorkerPool: config.WorkerPoolConfig{Size: 5},
		Billing: config.BillingConfig{
			LockTimeout: 5 * time.Second,
			RunTimeout:  time.Minute,
		},
	}

	billingService, release := CreateBillingService(
		mockPool,
		&MockSubscriptionRepo{},
		&MockAssetRepo{},
		&MockTransactionRepo{},
		&MockOutboxRepo{},
		nil,
		slog.Default(),
		cfg,
	)
	assert.NotNil(t, billingService)
	assert.NotNil(t, release)

	pooled, ok := billingService.(*service.WorkerPoolBillingService)
	if assert.True(t, ok) {
		assert.Equal(t, 5, pooled.Capacity())
	}

	assert.NotPanics(t, release)
}
