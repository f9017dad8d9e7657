package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// BillingHandler handles billing runs, alerts and the charge history
type BillingHandler struct {
	billingService service.BillingService
	alertService   service.AlertService
	historyService service.HistoryService
	now            func() time.Time
	logger         *slog.Logger
}

// NewBillingHandler creates a new billing handler
func NewBillingHandler(logger *slog.Logger, billingService service.BillingService, alertService service.AlertService, historyService service.HistoryService) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		alertService:   alertService,
		historyService: historyService,
		now:            time.Now,
		logger:         logger,
	}
}

// Process runs billing synchronously and returns per-subscription outcomes.
// Declined charges are reported in the result; only an unavailable store fails the call.
func (h *BillingHandler) Process(c *gin.Context) {
	targetDate, ok := h.bindTargetDate(c)
	if !ok {
		return
	}

	result, err := h.billingService.ProcessBilling(c.Request.Context(), middleware.GetOwnerID(c), targetDate, middleware.GetCorrelationID(c))
	if err != nil {
		respondError(c, h.logger, "Billing run failed", err)
		return
	}

	RespondOK(c, mapRunResultToResponse(result))
}

// Enqueue hands the run to the billing processor over Kafka
func (h *BillingHandler) Enqueue(c *gin.Context) {
	targetDate, ok := h.bindTargetDate(c)
	if !ok {
		return
	}

	req, err := h.billingService.EnqueueRun(c.Request.Context(), middleware.GetOwnerID(c), targetDate, middleware.GetCorrelationID(c))
	if err != nil {
		respondError(c, h.logger, "Failed to enqueue billing run", err)
		return
	}

	RespondAccepted(c, BillingRunAcceptedResponse{
		RunID:      req.RunID.String(),
		TargetDate: req.TargetDate,
		Status:     "QUEUED",
	})
}

// Alerts lists active subscriptions billed within ?days= (default from config)
func (h *BillingHandler) Alerts(c *gin.Context) {
	var days *int
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			RespondBadRequest(c, "days must be an integer")
			return
		}
		days = &n
	}

	alerts, err := h.alertService.GetAlerts(c.Request.Context(), middleware.GetOwnerID(c), days)
	if err != nil {
		respondError(c, h.logger, "Failed to get billing alerts", err)
		return
	}

	response := make([]BillingAlertResponse, 0, len(alerts))
	for _, a := range alerts {
		response = append(response, mapAlertToResponse(a))
	}
	RespondOK(c, response)
}

// History returns a page of journaled charges, newest first
func (h *BillingHandler) History(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		h.logger.Error("Invalid pagination parameters", "error", err)
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.historyService.GetChargeHistory(c.Request.Context(), middleware.GetOwnerID(c), pagination.Page, pagination.PerPage)
	if err != nil {
		respondError(c, h.logger, "Failed to get charge history", err)
		return
	}

	response := make([]ChargeResponse, 0, len(entries))
	for _, e := range entries {
		response = append(response, mapJournalEntryToResponse(e))
	}
	RespondWithPaginatedData(c, http.StatusOK, response, pagination.Page, pagination.PerPage, int(total))
}

// bindTargetDate reads an optional body; a missing target date means today (UTC)
func (h *BillingHandler) bindTargetDate(c *gin.Context) (time.Time, bool) {
	var req BillingProcessRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			h.logger.Error("Invalid request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return time.Time{}, false
		}
	}

	if req.TargetDate == "" {
		return shared.DateOf(h.now().UTC()), true
	}
	targetDate, err := shared.ParseDate(req.TargetDate)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return time.Time{}, false
	}
	return targetDate, true
}
