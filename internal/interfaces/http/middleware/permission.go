package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lexora-inc/lexora/internal/domain/permission"
	"github.com/lexora-inc/lexora/internal/shared/logger"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

type PermissionMiddleware struct {
	enforcer permission.PermissionEnforcer
	logger   logger.Interface
}

func NewPermissionMiddleware(enforcer permission.PermissionEnforcer, logger logger.Interface) *PermissionMiddleware {
	return &PermissionMiddleware{
		enforcer: enforcer,
		logger:   logger,
	}
}

// RequirePermission admits the caller when either their user id or one of
// their token roles is granted action on resource.
func (m *PermissionMiddleware) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
			c.Abort()
			return
		}

		subjects := append([]string{principal.UserID}, principal.Roles...)
		for _, subject := range subjects {
			allowed, err := m.enforcer.Enforce(subject, resource, action)
			if err != nil {
				m.logger.Errorw("permission check failed", "error", err, "user_id", principal.UserID, "resource", resource, "action", action)
				utils.ErrorResponse(c, http.StatusInternalServerError, "permission check failed")
				c.Abort()
				return
			}
			if allowed {
				c.Next()
				return
			}
		}

		m.logger.Warnw("permission denied", "user_id", principal.UserID, "roles", principal.Roles, "resource", resource, "action", action)
		utils.ErrorResponse(c, http.StatusForbidden, "insufficient permissions")
		c.Abort()
	}
}
