package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/cycle"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/subscription"
)

// SubscriptionHandler handles HTTP requests for subscription operations
type SubscriptionHandler struct {
	subscriptionService service.SubscriptionService
	historyService      service.HistoryService
	logger              *slog.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(logger *slog.Logger, subscriptionService service.SubscriptionService, historyService service.HistoryService) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		historyService:      historyService,
		logger:              logger,
	}
}

// Create handles creation of a new subscription. auto_renew defaults to true
// and status to active.
func (h *SubscriptionHandler) Create(c *gin.Context) {
	var req CreateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	nextBillingDate, err := shared.ParseDate(req.NextBillingDate)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	assetID, err := parseOptionalID(req.AssetID)
	if err != nil {
		RespondBadRequest(c, "Invalid asset ID")
		return
	}

	params := subscription.Params{
		Name:            req.Name,
		Category:        subscription.Category(req.Category),
		Amount:          req.Amount,
		BillingCycle:    cycle.Cycle(req.BillingCycle),
		NextBillingDate: nextBillingDate,
		AutoRenew:       true,
		AssetID:         assetID,
		Status:          subscription.Status(req.Status),
	}
	if req.AutoRenew != nil {
		params.AutoRenew = *req.AutoRenew
	}

	sub, err := h.subscriptionService.CreateSubscription(c.Request.Context(), middleware.GetOwnerID(c), params)
	if err != nil {
		respondError(c, h.logger, "Failed to create subscription", err)
		return
	}

	RespondCreated(c, mapSubscriptionToResponse(sub))
}

// List returns the owner's subscriptions, optionally filtered by ?status=
func (h *SubscriptionHandler) List(c *gin.Context) {
	var status *subscription.Status
	if raw := c.Query("status"); raw != "" {
		s, err := subscription.ParseStatus(raw)
		if err != nil {
			RespondBadRequest(c, err.Error())
			return
		}
		status = &s
	}

	subs, err := h.subscriptionService.ListSubscriptions(c.Request.Context(), middleware.GetOwnerID(c), status)
	if err != nil {
		respondError(c, h.logger, "Failed to list subscriptions", err)
		return
	}

	response := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		response = append(response, mapSubscriptionToResponse(s))
	}
	RespondOK(c, response)
}

// GetByID retrieves a subscription by its ID, returning 404 if not found
func (h *SubscriptionHandler) GetByID(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	sub, err := h.subscriptionService.GetSubscription(c.Request.Context(), middleware.GetOwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get subscription", err)
		return
	}

	RespondOK(c, mapSubscriptionToResponse(sub))
}

// Update applies a partial edit. The next billing date is owned by billing
// runs and cannot be edited here.
func (h *SubscriptionHandler) Update(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var req UpdateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	changes := subscription.Changes{
		Name:      req.Name,
		Amount:    req.Amount,
		AutoRenew: req.AutoRenew,
	}
	if req.Category != nil {
		cat := subscription.Category(*req.Category)
		changes.Category = &cat
	}
	if req.BillingCycle != nil {
		bc := cycle.Cycle(*req.BillingCycle)
		changes.BillingCycle = &bc
	}
	if req.Status != nil {
		st := subscription.Status(*req.Status)
		changes.Status = &st
	}
	if req.AssetID.Set {
		assetID, err := parseOptionalID(req.AssetID.Value)
		if err != nil {
			RespondBadRequest(c, "Invalid asset ID")
			return
		}
		changes.AssetID = assetID
		changes.ClearAsset = assetID == nil
	}

	sub, err := h.subscriptionService.UpdateSubscription(c.Request.Context(), middleware.GetOwnerID(c), id, changes)
	if err != nil {
		respondError(c, h.logger, "Failed to update subscription", err)
		return
	}

	RespondOK(c, mapSubscriptionToResponse(sub))
}

// Delete removes a subscription. Its past transactions are kept.
func (h *SubscriptionHandler) Delete(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	if err := h.subscriptionService.DeleteSubscription(c.Request.Context(), middleware.GetOwnerID(c), id); err != nil {
		respondError(c, h.logger, "Failed to delete subscription", err)
		return
	}

	RespondNoContent(c)
}

// Charges lists the journaled charges of one subscription
func (h *SubscriptionHandler) Charges(c *gin.Context) {
	id, ok := h.parseID(c)
	if !ok {
		return
	}

	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, err := h.historyService.GetSubscriptionCharges(c.Request.Context(), middleware.GetOwnerID(c), id, pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, "Failed to get subscription charges", err)
		return
	}

	response := make([]ChargeResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, mapJournalEntryToResponse(e))
	}
	RespondOK(c, response)
}

func (h *SubscriptionHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid subscription ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid subscription ID")
		return uuid.Nil, false
	}
	return id, true
}
