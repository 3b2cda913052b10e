package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers"
)

// PlanRouteConfig holds dependencies for the public catalog routes.
type PlanRouteConfig struct {
	PlanHandler *handlers.PlanHandler
}

// SetupPlanRoutes configures the public plan catalog.
func SetupPlanRoutes(api *gin.RouterGroup, cfg *PlanRouteConfig) {
	plans := api.Group("/plans")
	{
		plans.GET("", cfg.PlanHandler.ListPlans)
		plans.GET("/:tier", cfg.PlanHandler.GetPlan)
	}
}
