package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

const defaultTransactionLimit = 50

// TransactionServiceImpl implements the TransactionService interface
type TransactionServiceImpl struct {
	db               persistence.TxBeginner
	transactionRepo  transaction.Repository
	assetRepo        asset.Repository
	subscriptionRepo subscription.Repository
	logger           *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(
	logger *slog.Logger,
	db persistence.TxBeginner,
	transactionRepo transaction.Repository,
	assetRepo asset.Repository,
	subscriptionRepo subscription.Repository,
) TransactionService {
	return &TransactionServiceImpl{
		db:               db,
		transactionRepo:  transactionRepo,
		assetRepo:        assetRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// CreateTransaction records t and, when an asset is linked, credits income to
// it or debits expenses from it. The asset row is locked so a concurrent
// billing run cannot spend the same balance.
func (s *TransactionServiceImpl) CreateTransaction(ctx context.Context, ownerID uuid.UUID, params transaction.Params) (*transaction.Transaction, error) {
	t, err := transaction.NewTransaction(ownerID, params)
	if err != nil {
		return nil, err
	}

	if t.SubscriptionID != nil {
		if _, err := s.subscriptionRepo.GetByID(ctx, ownerID, *t.SubscriptionID); err != nil {
			return nil, err
		}
	}

	if t.AssetID == nil {
		if err := s.transactionRepo.Create(ctx, t); err != nil {
			return nil, err
		}
		s.logger.Info("Transaction recorded", "transaction_id", t.ID.String(), "type", string(t.Type))
		return t, nil
	}

	var balanceAfter string
	err = persistence.RunInTx(ctx, s.db, func(tx pgx.Tx) error {
		assetRepo := s.assetRepo.WithTx(tx)
		locked, err := assetRepo.LockForUpdate(ctx, ownerID, *t.AssetID)
		if err != nil {
			return err
		}

		switch t.Type {
		case transaction.TypeIncome:
			if err := assetRepo.Credit(ctx, locked.ID, t.Amount, locked.Version); err != nil {
				return err
			}
			if err := locked.Credit(t.Amount); err != nil {
				return err
			}
		case transaction.TypeExpense:
			if !locked.CanDebit(t.Amount) {
				return asset.ErrInsufficientFunds
			}
			if err := assetRepo.Debit(ctx, locked.ID, t.Amount, locked.Version); err != nil {
				return err
			}
			if err := locked.Debit(t.Amount); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unsupported transaction type %q", t.Type)
		}
		balanceAfter = locked.Balance.String()

		return s.transactionRepo.WithTx(tx).Create(ctx, t)
	})
	if err != nil {
		s.logger.Warn("Failed to record transaction",
			"owner_id", ownerID.String(),
			"asset_id", t.AssetID.String(),
			"error", err,
		)
		return nil, err
	}

	s.logger.Info("Transaction recorded",
		"transaction_id", t.ID.String(),
		"type", string(t.Type),
		"asset_id", t.AssetID.String(),
		"balance_after", balanceAfter,
	)
	return t, nil
}

func (s *TransactionServiceImpl) GetTransaction(ctx context.Context, ownerID, id uuid.UUID) (*transaction.Transaction, error) {
	return s.transactionRepo.GetByID(ctx, ownerID, id)
}

func (s *TransactionServiceImpl) ListTransactions(ctx context.Context, ownerID uuid.UUID, filter transaction.Filter) ([]*transaction.Transaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultTransactionLimit
	}
	return s.transactionRepo.List(ctx, ownerID, filter)
}
