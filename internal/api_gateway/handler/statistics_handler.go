package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/api_gateway/service"
	"github.com/subscription-billing-ledger/internal/domain/shared"
)

// StatisticsHandler serves the read-only spending and distribution aggregates
type StatisticsHandler struct {
	statisticsService service.StatisticsService
	logger            *slog.Logger
}

func NewStatisticsHandler(logger *slog.Logger, statisticsService service.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{
		statisticsService: statisticsService,
		logger:            logger,
	}
}

func (h *StatisticsHandler) MonthlySpending(c *gin.Context) {
	q, ok := h.bindMonth(c)
	if !ok {
		return
	}

	res, err := h.statisticsService.MonthlySpending(c.Request.Context(), middleware.GetOwnerID(c), q.Year, q.Month)
	if err != nil {
		respondError(c, h.logger, "Failed to compute monthly spending", err)
		return
	}
	RespondOK(c, mapMonthlySpending(res))
}

func (h *StatisticsHandler) CategorySpending(c *gin.Context) {
	var q DateRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}
	start, err := shared.ParseDate(q.StartDate)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}
	end, err := shared.ParseDate(q.EndDate)
	if err != nil {
		RespondBadRequest(c, err.Error())
		return
	}

	res, err := h.statisticsService.CategorySpending(c.Request.Context(), middleware.GetOwnerID(c), start, end)
	if err != nil {
		respondError(c, h.logger, "Failed to compute category spending", err)
		return
	}
	RespondOK(c, mapCategorySpending(res))
}

func (h *StatisticsHandler) SubscriptionSpending(c *gin.Context) {
	q, ok := h.bindMonth(c)
	if !ok {
		return
	}

	res, err := h.statisticsService.SubscriptionSpending(c.Request.Context(), middleware.GetOwnerID(c), q.Year, q.Month)
	if err != nil {
		respondError(c, h.logger, "Failed to compute subscription spending", err)
		return
	}
	RespondOK(c, mapSubscriptionSpending(res))
}

func (h *StatisticsHandler) AssetDistribution(c *gin.Context) {
	res, err := h.statisticsService.AssetDistribution(c.Request.Context(), middleware.GetOwnerID(c))
	if err != nil {
		respondError(c, h.logger, "Failed to compute asset distribution", err)
		return
	}
	RespondOK(c, mapAssetDistribution(res))
}

// Overview returns the monthly dashboard figures in one call
func (h *StatisticsHandler) Overview(c *gin.Context) {
	q, ok := h.bindMonth(c)
	if !ok {
		return
	}

	res, err := h.statisticsService.Overview(c.Request.Context(), middleware.GetOwnerID(c), q.Year, q.Month)
	if err != nil {
		respondError(c, h.logger, "Failed to build statistics overview", err)
		return
	}
	RespondOK(c, OverviewResponse{
		MonthlySpending:      mapMonthlySpending(res.MonthlySpending),
		SubscriptionSpending: mapSubscriptionSpending(res.SubscriptionSpending),
		CategorySpending:     mapCategorySpending(res.CategorySpending),
		AssetDistribution:    mapAssetDistribution(res.AssetDistribution),
	})
}

func (h *StatisticsHandler) bindMonth(c *gin.Context) (MonthQuery, bool) {
	var q MonthQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		RespondBadRequest(c, "year and month are required, month must be 1-12")
		return q, false
	}
	return q, true
}
