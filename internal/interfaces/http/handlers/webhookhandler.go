package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/application/billing/usecases"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/shared/constants"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

// Providers send small JSON documents; anything larger is rejected unread.
const maxWebhookBodyBytes = 1 << 20

type stripeSignatureVerifier interface {
	Verify(payload []byte, header string) error
}

type polarSignatureVerifier interface {
	Verify(payload []byte, id, timestamp, signature string) error
}

type paystackSignatureVerifier interface {
	Verify(payload []byte, signature string) error
}

type webhookProcessor interface {
	ProcessStripe(ctx context.Context, payload []byte) (*usecases.WebhookOutcome, error)
	ProcessPolar(ctx context.Context, webhookID string, payload []byte) (*usecases.WebhookOutcome, error)
	ProcessPaystack(ctx context.Context, payload []byte) (*usecases.WebhookOutcome, error)
}

// WebhookVerifiers holds one verifier per provider; a nil verifier disables
// that provider's endpoint.
type WebhookVerifiers struct {
	Stripe   stripeSignatureVerifier
	Polar    polarSignatureVerifier
	Paystack paystackSignatureVerifier
}

// WebhookHandler authenticates provider deliveries by signature. Every
// verified delivery that was processed or deliberately ignored is answered
// 200 so the provider stops retrying.
type WebhookHandler struct {
	verifiers WebhookVerifiers
	processor webhookProcessor
	logger    logger.Interface
}

func NewWebhookHandler(verifiers WebhookVerifiers, processor webhookProcessor, logger logger.Interface) *WebhookHandler {
	return &WebhookHandler{
		verifiers: verifiers,
		processor: processor,
		logger:    logger,
	}
}

// HandleStripe receives Stripe events
// @Summary Stripe webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Stripe signature"
// @Success 200 {object} utils.APIResponse{data=usecases.WebhookOutcome}
// @Failure 401 {object} utils.APIResponse
// @Router /webhooks/stripe [post]
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	if h.verifiers.Stripe == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "stripe webhooks are not configured")
		return
	}
	payload, ok := h.readBody(c, vo.ProviderStripe)
	if !ok {
		return
	}
	if err := h.verifiers.Stripe.Verify(payload, c.GetHeader(constants.HeaderStripeSignature)); err != nil {
		h.rejectSignature(c, vo.ProviderStripe, err)
		return
	}

	outcome, err := h.processor.ProcessStripe(c.Request.Context(), payload)
	h.respond(c, vo.ProviderStripe, outcome, err)
}

// HandlePolar receives Polar events signed per Standard Webhooks
// @Summary Polar webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param webhook-id header string true "Delivery id"
// @Param webhook-timestamp header string true "Unix timestamp"
// @Param webhook-signature header string true "Signatures"
// @Success 200 {object} utils.APIResponse{data=usecases.WebhookOutcome}
// @Failure 401 {object} utils.APIResponse
// @Router /webhooks/polar [post]
func (h *WebhookHandler) HandlePolar(c *gin.Context) {
	if h.verifiers.Polar == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "polar webhooks are not configured")
		return
	}
	payload, ok := h.readBody(c, vo.ProviderPolar)
	if !ok {
		return
	}
	id := c.GetHeader(constants.HeaderWebhookID)
	err := h.verifiers.Polar.Verify(payload, id,
		c.GetHeader(constants.HeaderWebhookTimestamp),
		c.GetHeader(constants.HeaderWebhookSignature))
	if err != nil {
		h.rejectSignature(c, vo.ProviderPolar, err)
		return
	}

	outcome, err := h.processor.ProcessPolar(c.Request.Context(), id, payload)
	h.respond(c, vo.ProviderPolar, outcome, err)
}

// HandlePaystack receives Paystack events
// @Summary Paystack webhook
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param x-paystack-signature header string true "HMAC-SHA512 of the body"
// @Success 200 {object} utils.APIResponse{data=usecases.WebhookOutcome}
// @Failure 401 {object} utils.APIResponse
// @Router /webhooks/paystack [post]
func (h *WebhookHandler) HandlePaystack(c *gin.Context) {
	if h.verifiers.Paystack == nil {
		utils.ErrorResponse(c, http.StatusNotFound, "paystack webhooks are not configured")
		return
	}
	payload, ok := h.readBody(c, vo.ProviderPaystack)
	if !ok {
		return
	}
	if err := h.verifiers.Paystack.Verify(payload, c.GetHeader(constants.HeaderPaystackSignature)); err != nil {
		h.rejectSignature(c, vo.ProviderPaystack, err)
		return
	}

	outcome, err := h.processor.ProcessPaystack(c.Request.Context(), payload)
	h.respond(c, vo.ProviderPaystack, outcome, err)
}

func (h *WebhookHandler) readBody(c *gin.Context, provider vo.PaymentProvider) ([]byte, bool) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		h.logger.Warnw("failed to read webhook body", "provider", provider, "error", err)
		utils.ErrorResponse(c, http.StatusBadRequest, "unreadable request body")
		return nil, false
	}
	return payload, true
}

func (h *WebhookHandler) rejectSignature(c *gin.Context, provider vo.PaymentProvider, err error) {
	h.logger.Warnw("webhook signature verification failed",
		"provider", provider,
		"client_ip", c.ClientIP(),
		"error", err,
	)
	utils.ErrorResponse(c, http.StatusUnauthorized, "invalid webhook signature")
}

func (h *WebhookHandler) respond(c *gin.Context, provider vo.PaymentProvider, outcome *usecases.WebhookOutcome, err error) {
	if err != nil {
		h.logger.Errorw("failed to process webhook", "provider", provider, "error", err)
		utils.ErrorResponseWithError(c, err)
		return
	}
	utils.SuccessResponse(c, http.StatusOK, "", outcome)
}
