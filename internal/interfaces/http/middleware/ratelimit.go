package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/infrastructure/ratelimit"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

// RateLimitMiddleware throttles authenticated requests per organization.
type RateLimitMiddleware struct {
	limiter ratelimit.RateLimiter
	logger  logger.Interface
}

func NewRateLimitMiddleware(limiter ratelimit.RateLimiter, logger logger.Interface) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiter: limiter,
		logger:  logger,
	}
}

// LimitByOrganization admits perMinute requests per organization and scope.
// A failing limiter lets the request through. A non-positive perMinute
// disables the limit.
func (m *RateLimitMiddleware) LimitByOrganization(scope string, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if perMinute <= 0 {
			c.Next()
			return
		}

		orgID, ok := organizationID(c)
		if !ok {
			return
		}

		key := "org:" + orgID + ":" + scope
		decision, err := m.limiter.Allow(c.Request.Context(), key, ratelimit.PerMinute(perMinute))
		if err != nil {
			m.logger.Warnw("rate limit check failed, admitting request",
				"error", err,
				"organization_id", orgID,
				"scope", scope,
			)
			c.Next()
			return
		}

		if decision.Limit > 0 {
			c.Header("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		}

		if !decision.Allowed {
			m.logger.Warnw("rate limit exceeded",
				"organization_id", orgID,
				"scope", scope,
				"limit", decision.Limit,
			)
			retryAfter := int(math.Ceil(decision.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(max(retryAfter, 1)))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			c.Abort()
			return
		}

		c.Next()
	}
}
