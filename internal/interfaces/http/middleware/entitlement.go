package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	appentitlement "github.com/lexora-inc/lexora/internal/application/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/shared/constants"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type EntitlementChecker interface {
	RequireFeature(ctx context.Context, organizationID string, key plan.FeatureKey) error
	CanPerformAction(ctx context.Context, action appentitlement.Action) (appentitlement.ActionResult, error)
}

// EntitlementMiddleware gates routes on the caller's plan. It must run after
// RequireAuth.
type EntitlementMiddleware struct {
	checker EntitlementChecker
	logger  logger.Interface
}

func NewEntitlementMiddleware(checker EntitlementChecker, logger logger.Interface) *EntitlementMiddleware {
	return &EntitlementMiddleware{
		checker: checker,
		logger:  logger,
	}
}

// RequireFeature answers 402 with the cheapest unlocking tier when the
// organization's plan lacks key.
func (m *EntitlementMiddleware) RequireFeature(key plan.FeatureKey) gin.HandlerFunc {
	if !key.IsValid() {
		panic(fmt.Sprintf("middleware: unknown feature %q", key))
	}
	return func(c *gin.Context) {
		orgID, ok := organizationID(c)
		if !ok {
			return
		}

		if err := m.checker.RequireFeature(c.Request.Context(), orgID, key); err != nil {
			m.logger.Infow("feature gate denied request",
				"organization_id", orgID,
				"feature", key,
				"path", c.Request.URL.Path,
				"error", err)
			utils.AbortWithError(c, appentitlement.AsPaymentRequired(err))
			return
		}
		c.Next()
	}
}

// RequireLimit answers 402 when the organization has used up a metered
// quota for the current billing period. Standing quotas need the caller's
// own count and are checked in the handler instead.
func (m *EntitlementMiddleware) RequireLimit(key plan.LimitKey) gin.HandlerFunc {
	if _, metered := subscription.MeterFor(key); !metered {
		panic(fmt.Sprintf("middleware: limit %q is not metered", key))
	}
	return func(c *gin.Context) {
		orgID, ok := organizationID(c)
		if !ok {
			return
		}

		result, err := m.checker.CanPerformAction(c.Request.Context(), appentitlement.Action{
			OrganizationID: orgID,
			Limit:          key,
		})
		if err != nil {
			m.logger.Errorw("failed to check usage limit", "organization_id", orgID, "limit", key, "error", err)
			utils.AbortWithError(c, err)
			return
		}
		if !result.Allowed {
			m.logger.Infow("usage gate denied request",
				"organization_id", orgID,
				"limit", key,
				"path", c.Request.URL.Path,
				"reason", result.Reason)
			utils.AbortWithError(c, appentitlement.DeniedAction(result))
			return
		}
		c.Next()
	}
}

func organizationID(c *gin.Context) (string, bool) {
	orgID := c.GetString(constants.ContextKeyOrganizationID)
	if orgID == "" {
		utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
		c.Abort()
		return "", false
	}
	return orgID, true
}
