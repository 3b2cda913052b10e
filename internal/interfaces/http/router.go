package http

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	_ "github.com/lexora-inc/lexora/docs"
	"github.com/lexora-inc/lexora/internal/infrastructure/config"
	"github.com/lexora-inc/lexora/internal/interfaces/http/middleware"
	"github.com/lexora-inc/lexora/internal/interfaces/http/routes"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

// Router represents the HTTP router configuration
type Router struct {
	*Container
}

// NewRouter creates a new HTTP router with all dependencies
func NewRouter(db *gorm.DB, cfg *config.Config, log logger.Interface) (*Router, error) {
	c, err := NewContainer(db, cfg, log)
	if err != nil {
		return nil, err
	}
	return &Router{Container: c}, nil
}

// SetupRoutes configures all HTTP routes
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.RequestLogger(r.log))
	r.engine.Use(middleware.Recovery(r.log))
	r.engine.Use(middleware.SecurityHeaders())
	r.engine.Use(middleware.CORS(r.cfg.Server.AllowedOrigins))

	r.engine.GET("/health", r.healthHandler.Health)
	if r.cfg.Server.Mode != gin.ReleaseMode {
		r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	routes.SetupWebhookRoutes(r.engine, &routes.WebhookRouteConfig{
		WebhookHandler: r.webhookHandler,
	})

	api := r.engine.Group("/api/v1")

	routes.SetupPlanRoutes(api, &routes.PlanRouteConfig{
		PlanHandler: r.planHandler,
	})
	routes.SetupEntitlementRoutes(api, &routes.EntitlementRouteConfig{
		EntitlementHandler:    r.entitlementHandler,
		UsageHandler:          r.usageHandler,
		AuthMiddleware:        r.authMiddleware,
		EntitlementMiddleware: r.entitlementMiddleware,
	})
	routes.SetupBillingRoutes(api, &routes.BillingRouteConfig{
		BillingHandler:      r.billingHandler,
		AuthMiddleware:      r.authMiddleware,
		RateLimitMiddleware: r.rateLimitMiddleware,
		SessionsPerMinute:   r.cfg.Billing.SessionsPerMinute,
	})
	routes.SetupAdminRoutes(api, &routes.AdminRouteConfig{
		AdminOverrideHandler: r.adminOverrideHandler,
		AuthMiddleware:       r.authMiddleware,
		PermissionMiddleware: r.permissionMiddleware,
	})
}

// GetEngine returns the Gin engine
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
