package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appentitlement "github.com/lexora-inc/lexora/internal/application/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/shared/constants"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type overrideService interface {
	Resolve(ctx context.Context, organizationID string) (entitlement.View, error)
	GrantOverrides(ctx context.Context, cmd appentitlement.GrantOverridesCommand) (entitlement.View, error)
	ClearOverrides(ctx context.Context, organizationID, clearedBy string) (entitlement.View, error)
}

type textSanitizer interface {
	Text(s string) string
}

// GrantOverridesRequest carries manual grants. Limit keys accept either the
// limit name ("documents") or the column name ("maxContracts").
type GrantOverridesRequest struct {
	Limits   map[string]int64 `json:"limits"`
	Features map[string]bool  `json:"features"`
	Note     string           `json:"note" binding:"omitempty,max=500"`
}

// AdminOverrideHandler lets support staff adjust one organization's
// entitlements. Grants last until the next provider webhook.
type AdminOverrideHandler struct {
	service   overrideService
	sanitizer textSanitizer
	logger    logger.Interface
}

func NewAdminOverrideHandler(service overrideService, sanitizer textSanitizer, logger logger.Interface) *AdminOverrideHandler {
	return &AdminOverrideHandler{
		service:   service,
		sanitizer: sanitizer,
		logger:    logger,
	}
}

// GetEntitlements returns another organization's effective entitlement
// @Summary Get organization entitlements
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param orgId path string true "Organization ID"
// @Success 200 {object} utils.APIResponse{data=entitlement.View}
// @Failure 403 {object} utils.APIResponse
// @Router /admin/organizations/{orgId}/entitlements [get]
func (h *AdminOverrideHandler) GetEntitlements(c *gin.Context) {
	orgID, ok := organizationParam(c)
	if !ok {
		return
	}

	view, err := h.service.Resolve(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorw("failed to resolve entitlements", "organization_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", view)
}

// GrantOverrides lays manual limits and features over the plan defaults
// @Summary Grant overrides
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param orgId path string true "Organization ID"
// @Param request body GrantOverridesRequest true "Overrides"
// @Success 200 {object} utils.APIResponse{data=entitlement.View}
// @Failure 400 {object} utils.APIResponse
// @Failure 403 {object} utils.APIResponse
// @Failure 409 {object} utils.APIResponse
// @Router /admin/organizations/{orgId}/overrides [put]
func (h *AdminOverrideHandler) GrantOverrides(c *gin.Context) {
	orgID, ok := organizationParam(c)
	if !ok {
		return
	}

	var req GrantOverridesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	actor := c.GetString(constants.ContextKeyUserID)
	view, err := h.service.GrantOverrides(c.Request.Context(), appentitlement.GrantOverridesCommand{
		OrganizationID: orgID,
		Limits:         req.Limits,
		Features:       req.Features,
		GrantedBy:      actor,
	})
	if err != nil {
		h.logger.Warnw("failed to grant overrides", "organization_id", orgID, "actor", actor, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	if note := strings.TrimSpace(h.sanitizer.Text(req.Note)); note != "" {
		h.logger.Infow("override note", "organization_id", orgID, "actor", actor, "note", note)
	}
	utils.SuccessResponse(c, http.StatusOK, "overrides granted", view)
}

// ClearOverrides restores the plan defaults
// @Summary Clear overrides
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param orgId path string true "Organization ID"
// @Success 200 {object} utils.APIResponse{data=entitlement.View}
// @Failure 403 {object} utils.APIResponse
// @Router /admin/organizations/{orgId}/overrides [delete]
func (h *AdminOverrideHandler) ClearOverrides(c *gin.Context) {
	orgID, ok := organizationParam(c)
	if !ok {
		return
	}

	view, err := h.service.ClearOverrides(c.Request.Context(), orgID, c.GetString(constants.ContextKeyUserID))
	if err != nil {
		h.logger.Errorw("failed to clear overrides", "organization_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "overrides cleared", view)
}

func organizationParam(c *gin.Context) (string, bool) {
	orgID := strings.TrimSpace(c.Param("orgId"))
	if orgID == "" || len(orgID) > 64 {
		utils.ErrorResponse(c, http.StatusBadRequest, "invalid organization id")
		return "", false
	}
	return orgID, true
}
