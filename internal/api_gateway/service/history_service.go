package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/domain/journal"
)

// HistoryServiceImpl implements the HistoryService interface
type HistoryServiceImpl struct {
	journalRepo journal.Repository
	logger      *slog.Logger
}

func NewHistoryService(logger *slog.Logger, journalRepo journal.Repository) HistoryService {
	return &HistoryServiceImpl{
		journalRepo: journalRepo,
		logger:      logger,
	}
}

// GetChargeHistory retrieves a page of the owner's journaled charges, newest first
func (s *HistoryServiceImpl) GetChargeHistory(ctx context.Context, ownerID uuid.UUID, page, perPage int) ([]*journal.Entry, int64, error) {
	offset := (page - 1) * perPage

	entries, err := s.journalRepo.ListByOwner(ctx, ownerID, perPage, offset)
	if err != nil {
		s.logger.Error("Failed to list charge history", "owner_id", ownerID.String(), "error", err)
		return nil, 0, err
	}

	total, err := s.journalRepo.CountByOwner(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

func (s *HistoryServiceImpl) GetSubscriptionCharges(ctx context.Context, ownerID, subscriptionID uuid.UUID, page, perPage int) ([]*journal.Entry, error) {
	return s.journalRepo.ListBySubscription(ctx, ownerID, subscriptionID, perPage, (page-1)*perPage)
}
