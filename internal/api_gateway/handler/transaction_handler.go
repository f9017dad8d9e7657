package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/shared"
	"github.com/subscription-billing-ledger/internal/domain/transaction"
)

// TransactionHandler handles HTTP requests for transaction operations
type TransactionHandler struct {
	transactionService service.TransactionService
	logger             *slog.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(logger *slog.Logger, transactionService service.TransactionService) *TransactionHandler {
	return &TransactionHandler{
		transactionService: transactionService,
		logger:             logger,
	}
}

// Create records a manual transaction, moving the linked asset's balance
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	date, err := shared.ParseDate(req.Date)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	subscriptionID, err := parseOptionalID(req.SubscriptionID)
	if err != nil {
		RespondBadRequest(c, "Invalid subscription ID")
		return
	}
	assetID, err := parseOptionalID(req.AssetID)
	if err != nil {
		RespondBadRequest(c, "Invalid asset ID")
		return
	}

	tx, err := h.transactionService.CreateTransaction(c.Request.Context(), middleware.GetOwnerID(c), transaction.Params{
		Type:           transaction.Type(req.Type),
		Category:       transaction.Category(req.Category),
		Amount:         req.Amount,
		Date:           date,
		Description:    req.Description,
		SubscriptionID: subscriptionID,
		AssetID:        assetID,
	})
	if err != nil {
		respondError(c, h.logger, "Failed to create transaction", err)
		return
	}

	RespondCreated(c, mapTransactionToResponse(tx))
}

// GetByID retrieves transaction details by its ID, returns 404 if not found
func (h *TransactionHandler) GetByID(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid transaction ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid transaction ID")
		return
	}

	tx, err := h.transactionService.GetTransaction(c.Request.Context(), middleware.GetOwnerID(c), id)
	if err != nil {
		respondError(c, h.logger, "Failed to get transaction", err)
		return
	}

	RespondOK(c, mapTransactionToResponse(tx))
}

// List returns the owner's transactions, newest first, narrowed by the query filters
func (h *TransactionHandler) List(c *gin.Context) {
	var q TransactionQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.logger.Error("Invalid query parameters", "error", err)
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	filter, err := q.toFilter()
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	txs, err := h.transactionService.ListTransactions(c.Request.Context(), middleware.GetOwnerID(c), filter)
	if err != nil {
		respondError(c, h.logger, "Failed to list transactions", err)
		return
	}

	response := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		response = append(response, mapTransactionToResponse(tx))
	}
	RespondOK(c, response)
}

func (q TransactionQuery) toFilter() (transaction.Filter, error) {
	filter := transaction.Filter{Limit: q.Limit, Offset: q.Offset}

	if q.Type != "" {
		t, err := transaction.ParseType(q.Type)
		if err != nil {
			return filter, err
		}
		filter.Type = &t
	}
	if q.Category != "" {
		cat, err := transaction.ParseCategory(q.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &cat
	}
	for _, f := range []struct {
		raw string
		dst **uuid.UUID
	}{
		{q.SubscriptionID, &filter.SubscriptionID},
		{q.AssetID, &filter.AssetID},
	} {
		id, err := parseOptionalID(&f.raw)
		if err != nil {
			return filter, err
		}
		*f.dst = id
	}
	for _, f := range []struct {
		raw string
		dst **time.Time
	}{
		{q.StartDate, &filter.StartDate},
		{q.EndDate, &filter.EndDate},
	} {
		if f.raw == "" {
			continue
		}
		d, err := shared.ParseDate(f.raw)
		if err != nil {
			return filter, err
		}
		*f.dst = &d
	}
	return filter, nil
}
