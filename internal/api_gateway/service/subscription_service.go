package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
)

// SubscriptionServiceImpl implements the SubscriptionService interface
type SubscriptionServiceImpl struct {
	subscriptionRepo subscription.Repository
	assetRepo        asset.Repository
	logger           *slog.Logger
}

func NewSubscriptionService(logger *slog.Logger, subscriptionRepo subscription.Repository, assetRepo asset.Repository) SubscriptionService {
	return &SubscriptionServiceImpl{
		subscriptionRepo: subscriptionRepo,
		assetRepo:        assetRepo,
		logger:           logger,
	}
}

func (s *SubscriptionServiceImpl) CreateSubscription(ctx context.Context, ownerID uuid.UUID, params subscription.Params) (*subscription.Subscription, error) {
	sub, err := subscription.NewSubscription(ownerID, params)
	if err != nil {
		return nil, err
	}
	if err := s.checkAsset(ctx, ownerID, sub.AssetID); err != nil {
		return nil, err
	}

	if err := s.subscriptionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}

	s.logger.Info("Subscription created",
		"owner_id", ownerID.String(),
		"subscription_id", sub.ID.String(),
		"next_billing_date", shared.FormatDate(sub.NextBillingDate),
	)
	return sub, nil
}

func (s *SubscriptionServiceImpl) GetSubscription(ctx context.Context, ownerID, id uuid.UUID) (*subscription.Subscription, error) {
	return s.subscriptionRepo.GetByID(ctx, ownerID, id)
}

func (s *SubscriptionServiceImpl) ListSubscriptions(ctx context.Context, ownerID uuid.UUID, status *subscription.Status) ([]*subscription.Subscription, error) {
	return s.subscriptionRepo.List(ctx, ownerID, status)
}

// UpdateSubscription applies changes on a fresh read. A billing run advancing
// the same subscription in between makes the write fail the version check, and
// the edit is applied once more on top of the advanced state.
func (s *SubscriptionServiceImpl) UpdateSubscription(ctx context.Context, ownerID, id uuid.UUID, changes subscription.Changes) (*subscription.Subscription, error) {
	if !changes.ClearAsset {
		if err := s.checkAsset(ctx, ownerID, changes.AssetID); err != nil {
			return nil, err
		}
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		sub, err := s.subscriptionRepo.GetByID(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		if err := sub.Apply(changes); err != nil {
			return nil, err
		}

		lastErr = s.subscriptionRepo.Update(ctx, sub)
		if lastErr == nil {
			return sub, nil
		}
		if !errors.Is(lastErr, subscription.ErrConcurrentModification{}) {
			return nil, lastErr
		}
		s.logger.Warn("Subscription modified concurrently, retrying update", "subscription_id", id.String())
	}
	return nil, lastErr
}

func (s *SubscriptionServiceImpl) DeleteSubscription(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.subscriptionRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("Subscription deleted", "owner_id", ownerID.String(), "subscription_id", id.String())
	return nil
}

// checkAsset verifies a linked asset exists and belongs to the owner
func (s *SubscriptionServiceImpl) checkAsset(ctx context.Context, ownerID uuid.UUID, assetID *uuid.UUID) error {
	if assetID == nil {
		return nil
	}
	_, err := s.assetRepo.GetByID(ctx, ownerID, *assetID)
	return err
}
