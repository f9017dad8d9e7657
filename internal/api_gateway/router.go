package api_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subscription-billing-ledger/internal/api_gateway/handler"
	"github.com/subscription-billing-ledger/internal/api_gateway/middleware"
	"github.com/subscription-billing-ledger/internal/platform/observability"
	"github.com/subscription-billing-ledger/internal/platform/persistence"
)

const readinessTimeout = 2 * time.Second

type handlers struct {
	asset        *handler.AssetHandler
	subscription *handler.SubscriptionHandler
	transaction  *handler.TransactionHandler
	billing      *handler.BillingHandler
	statistics   *handler.StatisticsHandler
}

// setupRouter configures API routes and middleware for the application.
// metrics may be nil, in which case no request metrics are recorded and
// /metrics is not served.
func setupRouter(logger *slog.Logger, r *gin.Engine, h handlers, stores map[string]persistence.Pinger, metrics *observability.Metrics, metricsPath string) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
		r.GET(metricsPath, gin.WrapH(metrics.Handler()))
	}

	// API v1 endpoints, every call acts for the owner in X-Owner-ID
	v1 := r.Group("/api/v1", middleware.Owner())
	{
		assets := v1.Group("/assets")
		{
			assets.POST("", h.asset.Create)
			assets.GET("", h.asset.List)
			assets.GET("/total", h.asset.Total)
			assets.GET("/:id", h.asset.GetByID)
			assets.PUT("/:id", h.asset.Update)
			assets.DELETE("/:id", h.asset.Delete)
		}

		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.POST("", h.subscription.Create)
			subscriptions.GET("", h.subscription.List)
			subscriptions.GET("/:id", h.subscription.GetByID)
			subscriptions.PUT("/:id", h.subscription.Update)
			subscriptions.DELETE("/:id", h.subscription.Delete)
			subscriptions.GET("/:id/charges", h.subscription.Charges)
		}

		transactions := v1.Group("/transactions")
		{
			transactions.POST("", h.transaction.Create)
			transactions.GET("", h.transaction.List)
			transactions.GET("/:id", h.transaction.GetByID)
		}

		billing := v1.Group("/billing")
		{
			billing.POST("/process", h.billing.Process)
			billing.POST("/runs", h.billing.Enqueue)
			billing.GET("/alerts", h.billing.Alerts)
			billing.GET("/history", h.billing.History)
		}

		statistics := v1.Group("/statistics")
		{
			statistics.GET("/monthly-spending", h.statistics.MonthlySpending)
			statistics.GET("/category-spending", h.statistics.CategorySpending)
			statistics.GET("/subscription-spending", h.statistics.SubscriptionSpending)
			statistics.GET("/asset-distribution", h.statistics.AssetDistribution)
			statistics.GET("/overview", h.statistics.Overview)
		}
	}

	// Liveness and readiness probes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/ready", func(c *gin.Context) {
		report, ready := persistence.CheckStores(c.Request.Context(), readinessTimeout, stores)
		if !ready {
			logger.Warn("Readiness check failed", "stores", report)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "stores": report})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "stores": report})
	})
}
