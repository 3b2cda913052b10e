package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type markdownRenderer interface {
	HTML(src string) (string, error)
}

// PlanResponse is a catalog entry with its description rendered to HTML.
type PlanResponse struct {
	plan.Definition
	DescriptionHTML string `json:"descriptionHtml"`
}

type PlansResponse struct {
	Plans           []PlanResponse                `json:"plans"`
	FeatureMinPlans map[plan.FeatureKey]plan.Tier `json:"featureMinPlans"`
}

type PlanHandler struct {
	renderer markdownRenderer
	logger   logger.Interface
}

func NewPlanHandler(renderer markdownRenderer, logger logger.Interface) *PlanHandler {
	return &PlanHandler{
		renderer: renderer,
		logger:   logger,
	}
}

// ListPlans returns the public plan catalog
// @Summary List plans
// @Description Every canonical tier with its features, limits and prices in cents
// @Tags Plans
// @Produce json
// @Success 200 {object} utils.APIResponse{data=PlansResponse}
// @Router /plans [get]
func (h *PlanHandler) ListPlans(c *gin.Context) {
	defs := plan.All()
	resp := PlansResponse{
		Plans:           make([]PlanResponse, 0, len(defs)),
		FeatureMinPlans: plan.FeatureMinPlans(),
	}
	for _, def := range defs {
		resp.Plans = append(resp.Plans, h.toResponse(def))
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}

// GetPlan returns one tier. Legacy tier names resolve to their current tier.
// @Summary Get plan
// @Tags Plans
// @Produce json
// @Param tier path string true "Tier, e.g. PRO"
// @Success 200 {object} utils.APIResponse{data=PlanResponse}
// @Failure 404 {object} utils.APIResponse
// @Router /plans/{tier} [get]
func (h *PlanHandler) GetPlan(c *gin.Context) {
	tier, ok := plan.ParseTier(c.Param("tier"))
	if !ok {
		utils.ErrorResponse(c, http.StatusNotFound, "plan not found")
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", h.toResponse(plan.Get(tier)))
}

func (h *PlanHandler) toResponse(def plan.Definition) PlanResponse {
	html, err := h.renderer.HTML(def.Description)
	if err != nil {
		h.logger.Warnw("failed to render plan description", "tier", def.Tier, "error", err)
	}
	return PlanResponse{Definition: def, DescriptionHTML: html}
}
