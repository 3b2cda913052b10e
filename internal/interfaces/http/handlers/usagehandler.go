package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appentitlement "github.com/lexora-inc/lexora/internal/application/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/shared/constants"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type usageService interface {
	UsageSummary(ctx context.Context, organizationID string) (*appentitlement.UsageSummary, error)
	UsageHistory(ctx context.Context, organizationID string, limit int) ([]*subscription.UsageRecord, error)
	Consume(ctx context.Context, cmd appentitlement.RecordUsageCommand) (*appentitlement.ConsumeResult, error)
}

type UsageHandler struct {
	service usageService
	logger  logger.Interface
}

func NewUsageHandler(service usageService, logger logger.Interface) *UsageHandler {
	return &UsageHandler{
		service: service,
		logger:  logger,
	}
}

// ConsumeUsageRequest records one completed action.
type ConsumeUsageRequest struct {
	Type         string         `json:"type" binding:"required"`
	Amount       *int64         `json:"amount" binding:"omitempty,gte=0"`
	ResourceType string         `json:"resourceType" binding:"omitempty,max=64"`
	ResourceID   string         `json:"resourceId" binding:"omitempty,max=128"`
	Metadata     map[string]any `json:"metadata"`
}

// GetSummary reports every metered limit for the current billing period
// @Summary Usage summary
// @Tags Usage
// @Produce json
// @Security Bearer
// @Success 200 {object} utils.APIResponse{data=appentitlement.UsageSummary}
// @Router /usage [get]
func (h *UsageHandler) GetSummary(c *gin.Context) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)

	summary, err := h.service.UsageSummary(c.Request.Context(), orgID)
	if err != nil {
		h.logger.Errorw("failed to load usage summary", "organization_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", summary)
}

// Consume checks the quotas metered by the usage type and records it
// @Summary Consume usage
// @Tags Usage
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ConsumeUsageRequest true "Usage"
// @Success 201 {object} utils.APIResponse{data=ConsumeUsageResponse}
// @Failure 400 {object} utils.APIResponse
// @Failure 402 {object} utils.APIResponse
// @Router /usage [post]
func (h *UsageHandler) Consume(c *gin.Context) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)

	var req ConsumeUsageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid consume usage request", "organization_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	result, err := h.service.Consume(c.Request.Context(), appentitlement.RecordUsageCommand{
		OrganizationID: orgID,
		Type:           subscription.UsageType(req.Type),
		Amount:         req.Amount,
		ResourceType:   req.ResourceType,
		ResourceID:     req.ResourceID,
		Metadata:       req.Metadata,
	})
	if err != nil {
		utils.ErrorResponseWithError(c, appentitlement.AsPaymentRequired(err))
		return
	}

	utils.SuccessResponse(c, http.StatusCreated, "usage recorded", ConsumeUsageResponse{
		Record: toUsageRecordResponse(result.Record),
		Checks: result.Checks,
	})
}

// ListRecords lists usage records of the current billing period
// @Summary Usage records
// @Tags Usage
// @Produce json
// @Security Bearer
// @Param limit query int false "Maximum records (default 100, max 500)"
// @Success 200 {object} utils.APIResponse{data=[]UsageRecordResponse}
// @Failure 402 {object} utils.APIResponse
// @Router /usage/records [get]
func (h *UsageHandler) ListRecords(c *gin.Context) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			utils.ErrorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}

	records, err := h.service.UsageHistory(c.Request.Context(), orgID, limit)
	if err != nil {
		h.logger.Errorw("failed to list usage records", "organization_id", orgID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	resp := make([]UsageRecordResponse, 0, len(records))
	for _, r := range records {
		resp = append(resp, toUsageRecordResponse(r))
	}
	utils.SuccessResponse(c, http.StatusOK, "", resp)
}
