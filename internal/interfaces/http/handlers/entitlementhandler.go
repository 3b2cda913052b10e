package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appentitlement "github.com/lexora-inc/lexora/internal/application/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/shared/constants"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type entitlementService interface {
	Resolve(ctx context.Context, organizationID string) (entitlement.View, error)
	CanUseFeature(ctx context.Context, organizationID string, key plan.FeatureKey) (entitlement.FeatureCheckResult, error)
	CheckLimit(ctx context.Context, organizationID string, key plan.LimitKey, currentUsage int64) (entitlement.LimitCheckResult, error)
	CanPerformAction(ctx context.Context, action appentitlement.Action) (appentitlement.ActionResult, error)
}

// EntitlementHandler answers "may this organization do X" queries. Denied
// checks are reported with 200; only route guards answer 402.
type EntitlementHandler struct {
	service entitlementService
	logger  logger.Interface
}

func NewEntitlementHandler(service entitlementService, logger logger.Interface) *EntitlementHandler {
	return &EntitlementHandler{
		service: service,
		logger:  logger,
	}
}

// GetEntitlements returns the caller organization's effective entitlement
// @Summary Get entitlements
// @Tags Entitlements
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=entitlement.View}
// @Failure 503 {object} utils.APIResponse
// @Router /entitlements [get]
func (h *EntitlementHandler) GetEntitlements(c *gin.Context) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)

	view, err := h.service.Resolve(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorw("failed to resolve entitlements", "organization_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// CheckFeature reports whether a feature is available
// @Summary Check feature
// @Tags Entitlements
// @Produce json
// @Security Bearer
// @Param feature path string true "Feature key, e.g. hasAiReview"
// @Success 200 {object} utils.APIResponse{data=entitlement.FeatureCheckResult}
// @Failure 400 {object} utils.APIResponse
// @Router /entitlements/features/{feature} [get]
func (h *EntitlementHandler) CheckFeature(c *gin.Context) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)
	key, ok := plan.ParseFeatureKey(c.Param("feature"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown feature")
		return
	}

	result, err := h.service.CanUseFeature(c.Request.Context(), orgID, key)
	if err != nil {
		h.logger.Errorw("failed to check feature", "organization_id", orgID, "feature", key, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result)
}

// CheckLimit compares usage against a limit. Metered limits use the current
// billing period when current is omitted; standing quotas require it.
// @Summary Check limit
// @Tags Entitlements
// @Produce json
// @Security Bearer
// @Param limit path string true "Limit key, e.g. documents"
// @Param current query int false "Current usage"
// @Success 200 {object} utils.APIResponse{data=entitlement.LimitCheckResult}
// @Failure 400 {object} utils.APIResponse
// @Router /entitlements/limits/{limit} [get]
func (h *EntitlementHandler) CheckLimit(c *gin.Context) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)
	key, ok := plan.ParseLimitKey(c.Param("limit"))
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown limit")
		return
	}

	if raw, present := c.GetQuery("current"); present {
		current, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || current < 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "current must be a non-negative integer")
			return
		}
		result, err := h.service.CheckLimit(c.Request.Context(), orgID, key, current)
		if err != nil {
			h.logger.Errorw("failed to check limit", "organization_id", orgID, "limit", key, "error", err)
			utils.ErrorResponseWithError(c, err)
			return
		}
		utils.SuccessResponse(c, http.StatusOK, "", result)
		return
	}

	if _, metered := subscription.MeterFor(key); !metered {
		utils.ErrorResponse(c, http.StatusBadRequest, "current is required for limits that are not metered")
		return
	}
	result, err := h.service.CanPerformAction(c.Request.Context(), appentitlement.Action{OrganizationID: orgID, Limit: key})
	if err != nil {
		h.logger.Errorw("failed to check limit", "organization_id", orgID, "limit", key, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", result.Limit)
}
