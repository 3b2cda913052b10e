package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers"
	"github.com/lexora-inc/lexora/internal/interfaces/http/middleware"
)

// BillingRouteConfig holds dependencies for checkout and portal routes.
type BillingRouteConfig struct {
	BillingHandler      *handlers.BillingHandler
	AuthMiddleware      *middleware.AuthMiddleware
	RateLimitMiddleware *middleware.RateLimitMiddleware
	SessionsPerMinute   int
}

// SetupBillingRoutes configures billing routes.
func SetupBillingRoutes(api *gin.RouterGroup, cfg *BillingRouteConfig) {
	billing := api.Group("/billing")
	billing.Use(cfg.AuthMiddleware.RequireAuth())
	{
		billing.POST("/checkout",
			cfg.RateLimitMiddleware.LimitByOrganization("checkout", cfg.SessionsPerMinute),
			cfg.BillingHandler.CreateCheckout)
		billing.POST("/portal",
			cfg.RateLimitMiddleware.LimitByOrganization("portal", cfg.SessionsPerMinute),
			cfg.BillingHandler.CreatePortal)
	}
}

// WebhookRouteConfig holds dependencies for provider webhook routes.
type WebhookRouteConfig struct {
	WebhookHandler *handlers.WebhookHandler
}

// SetupWebhookRoutes configures provider callbacks. They authenticate by
// signature, not by bearer token.
func SetupWebhookRoutes(engine *gin.Engine, cfg *WebhookRouteConfig) {
	webhooks := engine.Group("/webhooks")
	{
		webhooks.POST("/stripe", cfg.WebhookHandler.HandleStripe)
		webhooks.POST("/polar", cfg.WebhookHandler.HandlePolar)
		webhooks.POST("/paystack", cfg.WebhookHandler.HandlePaystack)
	}
}
