package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/shared/authorization"
	"msgdeck/internal/shared/constants"
	"msgdeck/internal/shared/logger"
	"msgdeck/internal/shared/utils"
)

type policyEnforcer interface {
	Enforce(subject, resource, action string) (bool, error)
}

type PermissionMiddleware struct {
	enforcer policyEnforcer
	logger   logger.Interface
}

func NewPermissionMiddleware(enforcer policyEnforcer, logger logger.Interface) *PermissionMiddleware {
	return &PermissionMiddleware{
		enforcer: enforcer,
		logger:   logger,
	}
}

// RequirePermission checks the caller's role first, then any grant made to the
// user directly.
func (m *PermissionMiddleware) RequirePermission(resource, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID, exists := c.Get(constants.ContextKeyUserID)
		if !exists {
			utils.ErrorResponse(c, http.StatusUnauthorized, "user not authenticated")
			c.Abort()
			return
		}
		userID, _ := rawID.(uint)
		role := authorization.RoleFromContext(c)

		allowed, err := m.enforcer.Enforce(role.String(), resource, action)
		if err == nil && !allowed && userID != 0 {
			allowed, err = m.enforcer.Enforce(permission.UserSubject(userID), resource, action)
		}
		if err != nil {
			m.logger.Errorw("permission check failed",
				"user_id", userID,
				"role", role,
				"resource", resource,
				"action", action,
				"error", err,
			)
			utils.ErrorResponse(c, http.StatusInternalServerError, "failed to check permission")
			c.Abort()
			return
		}

		if !allowed {
			m.logger.Warnw("permission denied",
				"user_id", userID,
				"role", role,
				"resource", resource,
				"action", action,
			)
			utils.ErrorResponse(c, http.StatusForbidden, constants.ErrMsgForbidden)
			c.Abort()
			return
		}

		c.Next()
	}
}
