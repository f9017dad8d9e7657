package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/subscription-billing-ledger/internal/billing_processor/service"
	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/billing"
	"github.com/subscription-billing-ledger/internal/domain/journal"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

var tracer = otel.Tracer("github.com/subscription-billing-ledger/internal/billing_processor/components")

// ChargeApplierImpl implements the ChargeApplier interface
type ChargeApplierImpl struct {
	subscriptionRepo subscription.Repository
	assetRepo        asset.Repository
	transactionRepo  transaction.Repository
	outboxManager    service.OutboxManager
	lockTimeout      time.Duration
	logger           *slog.Logger
}

func NewChargeApplier(
	subscriptionRepo subscription.Repository,
	assetRepo asset.Repository,
	transactionRepo transaction.Repository,
	outboxManager service.OutboxManager,
	lockTimeout time.Duration,
	logger *slog.Logger,
) service.ChargeApplier {
	return &ChargeApplierImpl{
		subscriptionRepo: subscriptionRepo,
		assetRepo:        assetRepo,
		transactionRepo:  transactionRepo,
		outboxManager:    outboxManager,
		lockTimeout:      lockTimeout,
		logger:           logger,
	}
}

// Apply locks the subscription, re-checks it is due and bills it against its
// asset. The subscription row lock is held until tx ends, so concurrent runs
// touching the same subscription are serialized.
func (a *ChargeApplierImpl) Apply(ctx context.Context, tx pgx.Tx, charge service.Charge) (*service.ChargeResult, error) {
	ctx, span := tracer.Start(ctx, "ChargeApplier.Apply", trace.WithAttributes(
		attribute.String("subscription_id", charge.SubscriptionID.String()),
	))
	defer span.End()

	logger := a.logger.With(
		"run_id", charge.RunID.String(),
		"subscription_id", charge.SubscriptionID.String(),
	)
	if charge.CorrelationID != "" {
		logger = logger.With("correlation_id", charge.CorrelationID)
	}

	if a.lockTimeout > 0 {
		// SET does not take bind parameters
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", a.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to set lock timeout: %w", err)
		}
	}

	subRepo := a.subscriptionRepo.WithTx(tx)
	sub, err := subRepo.LockForUpdate(ctx, charge.OwnerID, charge.SubscriptionID)
	if err != nil {
		if errors.Is(err, subscription.ErrSubscriptionNotFound{}) {
			// deleted after selection
			return nil, subscription.ErrNotDue
		}
		return nil, err
	}
	if !sub.IsDue(charge.TargetDate) {
		return nil, subscription.ErrNotDue
	}

	outcome := billing.Outcome{
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		Amount:           sub.Amount,
		AssetID:          sub.AssetID,
	}

	if !sub.AutoRenew {
		sub.Pause()
		if err := subRepo.Update(ctx, sub); err != nil {
			return nil, err
		}
		logger.Info("Auto-renew disabled, subscription paused")
		outcome.Message = billing.MessageAutoRenewDisabled
		return &service.ChargeResult{Outcome: outcome}, nil
	}

	if sub.AssetID == nil {
		outcome.Message = billing.MessageNoPaymentAsset
		return &service.ChargeResult{Outcome: outcome}, billing.DeclinedError{Message: outcome.Message}
	}

	assetRepo := a.assetRepo.WithTx(tx)
	locked, err := assetRepo.LockForUpdate(ctx, charge.OwnerID, *sub.AssetID)
	if err != nil {
		if errors.Is(err, asset.ErrAssetNotFound{}) {
			outcome.Message = billing.MessagePaymentAssetNotFound
			return &service.ChargeResult{Outcome: outcome}, billing.DeclinedError{Message: outcome.Message}
		}
		return nil, err
	}
	logger = logger.With("asset_id", locked.ID.String())

	if !locked.CanDebit(sub.Amount) {
		logger.Info("Insufficient balance", "balance", locked.Balance.String(), "amount", sub.Amount.String())
		outcome.Message = billing.MessageInsufficientBalance
		return &service.ChargeResult{Outcome: outcome}, billing.DeclinedError{Message: outcome.Message}
	}

	if err := assetRepo.Debit(ctx, locked.ID, sub.Amount, locked.Version); err != nil {
		return nil, err
	}
	if err := locked.Debit(sub.Amount); err != nil {
		return nil, err
	}

	charged := transaction.NewSubscriptionCharge(charge.OwnerID, sub.ID, locked.ID, sub.Name, sub.Amount, charge.TargetDate)
	if err := a.transactionRepo.WithTx(tx).Create(ctx, charged); err != nil {
		return nil, err
	}

	billedDate := sub.NextBillingDate
	sub.Advance()
	if err := subRepo.Update(ctx, sub); err != nil {
		return nil, err
	}

	entry := &journal.Entry{
		TransactionID:    charged.ID,
		OwnerID:          charge.OwnerID,
		RunID:            charge.RunID,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.Name,
		AssetID:          locked.ID,
		Amount:           sub.Amount.String(),
		Currency:         locked.Currency,
		BalanceAfter:     locked.Balance.String(),
		BillingDate:      shared.FormatDate(charge.TargetDate),
		NextBillingDate:  shared.FormatDate(sub.NextBillingDate),
		CorrelationID:    charge.CorrelationID,
		ChargedAt:        charged.CreatedAt,
	}
	if err := a.outboxManager.CreateChargeEntry(ctx, tx, entry); err != nil {
		return nil, err
	}

	logger.Info("Subscription charged",
		"transaction_id", charged.ID.String(),
		"amount", sub.Amount.String(),
		"balance_after", locked.Balance.String(),
		"billed_date", shared.FormatDate(billedDate),
		"next_billing_date", shared.FormatDate(sub.NextBillingDate),
	)

	outcome.Success = true
	outcome.Message = billing.MessageCharged
	return &service.ChargeResult{Outcome: outcome, Currency: locked.Currency}, nil
}
