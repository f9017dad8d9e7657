package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/domain/asset"
	"github.com/subscription-billing-ledger/internal/domain/money"
)

// AssetServiceImpl implements the AssetService interface
type AssetServiceImpl struct {
	assetRepo asset.Repository
	logger    *slog.Logger
}

// NewAssetService creates a new asset service
func NewAssetService(logger *slog.Logger, assetRepo asset.Repository) AssetService {
	return &AssetServiceImpl{
		assetRepo: assetRepo,
		logger:    logger,
	}
}

func (s *AssetServiceImpl) CreateAsset(ctx context.Context, ownerID uuid.UUID, input AssetInput) (*asset.Asset, error) {
	a, err := asset.NewAsset(ownerID, input.Name, input.Type, input.OpeningBalance, input.Currency)
	if err != nil {
		return nil, err
	}

	if err := s.assetRepo.Create(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("Asset created",
		"owner_id", ownerID.String(),
		"asset_id", a.ID.String(),
		"opening_balance", a.Balance.String(),
	)
	return a, nil
}

func (s *AssetServiceImpl) GetAsset(ctx context.Context, ownerID, id uuid.UUID) (*asset.Asset, error) {
	return s.assetRepo.GetByID(ctx, ownerID, id)
}

func (s *AssetServiceImpl) ListAssets(ctx context.Context, ownerID uuid.UUID) ([]*asset.Asset, error) {
	return s.assetRepo.List(ctx, ownerID)
}

func (s *AssetServiceImpl) TotalAssets(ctx context.Context, ownerID uuid.UUID) (money.Money, error) {
	return s.assetRepo.Total(ctx, ownerID)
}

// UpdateAsset retries once when a concurrent charge bumped the version
// between the read and the write
func (s *AssetServiceImpl) UpdateAsset(ctx context.Context, ownerID, id uuid.UUID, changes AssetChanges) (*asset.Asset, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		a, err := s.assetRepo.GetByID(ctx, ownerID, id)
		if err != nil {
			return nil, err
		}
		if err := a.UpdateDetails(changes.Name, changes.Type, changes.Currency); err != nil {
			return nil, err
		}

		lastErr = s.assetRepo.UpdateDetails(ctx, a)
		if lastErr == nil {
			return a, nil
		}
		if !errors.Is(lastErr, asset.ErrConcurrentModification{}) {
			return nil, lastErr
		}
		s.logger.Warn("Asset modified concurrently, retrying update", "asset_id", id.String())
	}
	return nil, lastErr
}

func (s *AssetServiceImpl) DeleteAsset(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.assetRepo.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	s.logger.Info("Asset deleted", "owner_id", ownerID.String(), "asset_id", id.String())
	return nil
}
