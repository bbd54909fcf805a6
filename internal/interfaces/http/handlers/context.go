package handlers

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/shared/authorization"
	"msgdeck/internal/shared/constants"
	"msgdeck/internal/shared/errors"
	"msgdeck/internal/shared/logger"
)

// getUserIDFromContext retrieves user_id set by the auth middleware.
func getUserIDFromContext(c *gin.Context, log logger.Interface) (uint, error) {
	userIDInterface, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		log.Warnw("user_id not found in context", "ip", c.ClientIP())
		return 0, errors.NewUnauthorizedError("user not authenticated")
	}

	userID, ok := userIDInterface.(uint)
	if !ok {
		log.Warnw("invalid user_id type in context", "user_id", userIDInterface, "ip", c.ClientIP())
		return 0, errors.NewInternalError("invalid user ID type")
	}

	return userID, nil
}

func isAdmin(c *gin.Context) bool {
	return authorization.RoleFromContext(c).IsAdmin()
}

// actsForOthers reports whether the caller may name another user in a request body.
// Admins and internal services can, end users cannot.
func actsForOthers(c *gin.Context) bool {
	role := authorization.RoleFromContext(c)
	return role == authorization.RoleAdmin || role == authorization.RoleService
}
