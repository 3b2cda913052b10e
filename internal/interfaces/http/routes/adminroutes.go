package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/domain/permission"
	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers"
	"github.com/lexora-inc/lexora/internal/interfaces/http/middleware"
)

// AdminRouteConfig holds dependencies for admin-only routes.
type AdminRouteConfig struct {
	AdminOverrideHandler *handlers.AdminOverrideHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupAdminRoutes configures support tooling for manual entitlement grants.
func SetupAdminRoutes(api *gin.RouterGroup, cfg *AdminRouteConfig) {
	orgs := api.Group("/admin/organizations/:orgId")
	orgs.Use(cfg.AuthMiddleware.RequireAuth())
	{
		orgs.GET("/entitlements",
			cfg.PermissionMiddleware.RequirePermission(permission.ResourceOverrides, permission.ActionRead),
			cfg.AdminOverrideHandler.GetEntitlements,
		)
		orgs.PUT("/overrides",
			cfg.PermissionMiddleware.RequirePermission(permission.ResourceOverrides, permission.ActionWrite),
			cfg.AdminOverrideHandler.GrantOverrides,
		)
		orgs.DELETE("/overrides",
			cfg.PermissionMiddleware.RequirePermission(permission.ResourceOverrides, permission.ActionDelete),
			cfg.AdminOverrideHandler.ClearOverrides,
		)
	}
}
