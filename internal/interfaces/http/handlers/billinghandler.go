package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/application/billing/dto"
	"github.com/lexora-inc/lexora/internal/application/billing/usecases"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/interfaces/http/middleware"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type createCheckoutUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreateCheckoutCommand) (*usecases.CheckoutResult, error)
}

type createPortalSessionUseCase interface {
	Execute(ctx context.Context, cmd usecases.CreatePortalSessionCommand) (*usecases.PortalResult, error)
}

type BillingHandler struct {
	checkoutUC createCheckoutUseCase
	portalUC   createPortalSessionUseCase
	logger     logger.Interface
}

func NewBillingHandler(checkoutUC createCheckoutUseCase, portalUC createPortalSessionUseCase, logger logger.Interface) *BillingHandler {
	return &BillingHandler{
		checkoutUC: checkoutUC,
		portalUC:   portalUC,
		logger:     logger,
	}
}

// CreateCheckout starts a hosted checkout for a paid plan
// @Summary Create checkout session
// @Tags Billing
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.CheckoutRequest true "Plan and interval"
// @Success 200 {object} utils.APIResponse{data=dto.CheckoutResponse}
// @Failure 400 {object} utils.APIResponse
// @Failure 429 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Router /billing/checkout [post]
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req dto.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warnw("invalid checkout request", "organization_id", principal.OrganizationID, "error", err)
		utils.ErrorResponseWithError(c, utils.BindingError(err))
		return
	}

	provider, ok := parseOptionalProvider(req.Provider)
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown payment provider")
		return
	}

	result, err := h.checkoutUC.Execute(c.Request.Context(), usecases.CreateCheckoutCommand{
		OrganizationID: principal.OrganizationID,
		Email:          principal.Email,
		Name:           principal.Name,
		Plan:           req.Plan,
		Interval:       req.Interval,
		Provider:       provider,
	})
	if err != nil {
		h.logger.Errorw("failed to create checkout", "organization_id", principal.OrganizationID, "plan", req.Plan, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.CheckoutResponse{
		Provider:  result.Provider.String(),
		SessionID: result.SessionID,
		URL:       result.URL,
	})
}

// CreatePortal opens the provider's self-service billing page
// @Summary Create billing portal session
// @Tags Billing
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body dto.PortalRequest false "Provider override"
// @Success 200 {object} utils.APIResponse{data=dto.PortalResponse}
// @Failure 404 {object} utils.APIResponse
// @Failure 429 {object} utils.APIResponse
// @Failure 502 {object} utils.APIResponse
// @Router /billing/portal [post]
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		return
	}

	var req dto.PortalRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.ErrorResponseWithError(c, utils.BindingError(err))
			return
		}
	}
	provider, ok := parseOptionalProvider(req.Provider)
	if !ok {
		utils.ErrorResponse(c, http.StatusBadRequest, "unknown payment provider")
		return
	}

	result, err := h.portalUC.Execute(c.Request.Context(), usecases.CreatePortalSessionCommand{
		OrganizationID: principal.OrganizationID,
		Provider:       provider,
	})
	if err != nil {
		h.logger.Errorw("failed to create portal session", "organization_id", principal.OrganizationID, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "", dto.PortalResponse{
		Provider: result.Provider.String(),
		URL:      result.URL,
	})
}

func parseOptionalProvider(s string) (vo.PaymentProvider, bool) {
	if s == "" {
		return "", true
	}
	return vo.ParseProvider(s)
}
