package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers"
	"github.com/lexora-inc/lexora/internal/interfaces/http/middleware"
)

// EntitlementRouteConfig holds dependencies for entitlement and usage routes.
type EntitlementRouteConfig struct {
	EntitlementHandler    *handlers.EntitlementHandler
	UsageHandler          *handlers.UsageHandler
	AuthMiddleware        *middleware.AuthMiddleware
	EntitlementMiddleware *middleware.EntitlementMiddleware
}

// SetupEntitlementRoutes configures the caller organization's entitlement
// queries and usage metering.
func SetupEntitlementRoutes(api *gin.RouterGroup, cfg *EntitlementRouteConfig) {
	entitlements := api.Group("/entitlements")
	entitlements.Use(cfg.AuthMiddleware.RequireAuth())
	{
		entitlements.GET("", cfg.EntitlementHandler.GetEntitlements)
		entitlements.GET("/features/:feature", cfg.EntitlementHandler.CheckFeature)
		entitlements.GET("/limits/:limit", cfg.EntitlementHandler.CheckLimit)
	}

	usage := api.Group("/usage")
	usage.Use(cfg.AuthMiddleware.RequireAuth())
	{
		usage.GET("", cfg.UsageHandler.GetSummary)
		usage.POST("", cfg.UsageHandler.Consume)
		usage.GET("/records",
			cfg.EntitlementMiddleware.RequireFeature(plan.FeatureAuditLog),
			cfg.UsageHandler.ListRecords,
		)
	}
}
