package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/cycle"
	"github.com/subscription-billing-ledger/internal/domain/money"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

var validationErrors = []error{
	money.ErrInvalidAmount,
	cycle.ErrInvalidCycle,
	shared.ErrInvalidDate,
	shared.ErrInvalidOwner,
	billing.ErrInvalidRun,
	asset.ErrInvalidAmount,
	asset.ErrNegativeBalance,
	asset.ErrEmptyName,
	asset.ErrInvalidType,
	asset.ErrInvalidCurrencyFormat,
	subscription.ErrEmptyName,
	subscription.ErrInvalidAmount,
	subscription.ErrInvalidCategory,
	subscription.ErrInvalidStatus,
	subscription.ErrMissingDate,
	transaction.ErrInvalidType,
	transaction.ErrInvalidCategory,
	transaction.ErrInvalidAmount,
	transaction.ErrMissingDate,
	service.ErrInvalidHorizon,
	service.ErrInvalidMonth,
	service.ErrInvalidDateRange,
}

// respondError maps service errors onto the response envelope. Anything
// unrecognised is logged and hidden behind a 500.
func respondError(c *gin.Context, logger *slog.Logger, msg string, err error) {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			RespondBadRequest(c, err.Error())
			return
		}
	}

	switch {
	case errors.Is(err, asset.ErrAssetNotFound{}):
		RespondNotFound(c, "Asset not found")
	case errors.Is(err, subscription.ErrSubscriptionNotFound{}):
		RespondNotFound(c, "Subscription not found")
	case errors.Is(err, transaction.ErrTransactionNotFound{}):
		RespondNotFound(c, "Transaction not found")
	case errors.Is(err, asset.ErrAssetInUse),
		errors.Is(err, asset.ErrInsufficientFunds),
		errors.Is(err, asset.ErrConcurrentModification{}),
		errors.Is(err, subscription.ErrConcurrentModification{}):
		RespondConflict(c, err.Error())
	case errors.Is(err, shared.ErrStoreUnavailable),
		errors.Is(err, service.ErrQueueUnavailable):
		logger.Warn(msg, "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondServiceUnavailable(c, err.Error())
	default:
		logger.Error(msg, "error", err, "correlation_id", middleware.GetCorrelationID(c))
		RespondInternalError(c)
	}
}
