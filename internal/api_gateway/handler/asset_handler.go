package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/asset"
)

// AssetHandler handles HTTP requests for asset operations
type AssetHandler struct {
	assetService service.AssetService
	logger       *slog.Logger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(logger *slog.Logger, assetService service.AssetService) *AssetHandler {
	return &AssetHandler{
		assetService: assetService,
		logger:       logger,
	}
}

// Create handles creation of a new asset with its opening balance
func (h *AssetHandler) Create(c *gin.Context) {
	var req CreateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	a, err := h.assetService.CreateAsset(c.Request.Context(), middleware.GetOwnerID(c), service.AssetInput{
		Name:           req.Name,
		Type:           asset.Type(req.Type),
		OpeningBalance: req.Balance,
		Currency:       req.Currency,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to create asset", err)
		return
	}

	RespondCreated(c, mapAssetToResponse(a))
}

// List returns every asset of the owner
func (h *AssetHandler) List(c *gin.Context) {
	assets, err := h.assetService.ListAssets(c.Request.Context(), middleware.GetOwnerID(c))
	if err != nil {
		respondError(c, h.logger, "Failed to list assets", err)
		return
	}

	response := make([]AssetResponse, 0, len(assets))
	for _, a := range assets {
		response = append(response, mapAssetToResponse(a))
	}
	RespondOK(c, response)
}

// Total returns the sum of the owner's asset balances
func (h *AssetHandler) Total(c *gin.Context) {
	ownerID := middleware.GetOwnerID(c)
	total, err := h.assetService.TotalAssets(c.Request.Context(), ownerID)
	if err != nil {
		respondError(c, h.logger, "Failed to total assets", err)
		return
	}

	RespondOK(c, TotalAssetsResponse{Total: total.String(), OwnerID: ownerID.String()})
}

// GetByID retrieves an asset by its ID, returning 404 if not found
func (h *AssetHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	a, err := h.assetService.GetAsset(c.Request.Context(), middleware.GetOwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get asset", err)
		return
	}

	RespondOK(c, mapAssetToResponse(a))
}

// Update edits the descriptive fields of an asset
func (h *AssetHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	changes := service.AssetChanges{Name: req.Name, Currency: req.Currency}
	if req.Type != nil {
		t := asset.Type(*req.Type)
		changes.Type = &t
	}

	a, err := h.assetService.UpdateAsset(c.Request.Context(), middleware.GetOwnerID(c), id, changes)
	if err != nil {
		respondError(c, h.logger, "Failed to update asset", err)
		return
	}

	RespondOK(c, mapAssetToResponse(a))
}

// Delete removes an asset that nothing references any more
func (h *AssetHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.assetService.DeleteAsset(c.Request.Context(), middleware.GetOwnerID(c), id); err != nil {
		respondError(c, h.logger, "Failed to delete asset", err)
		return
	}

	RespondNoContent(c)
}

func (h *AssetHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid asset ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid asset ID")
		return uuid.Nil, false
	}
	return id, true
}
