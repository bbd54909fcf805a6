package authorization

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"msgdeck/internal/shared/constants"
)

// RequireAdmin aborts with 403 unless the authenticated caller has the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !RoleFromContext(c).IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error": gin.H{
					"type":    "forbidden",
					"message": "admin access required",
				},
			})
			return
		}
		c.Next()
	}
}

// RoleFromContext reads the role set by the auth middleware.
func RoleFromContext(c *gin.Context) UserRole {
	return ParseUserRole(c.GetString(constants.ContextKeyUserRole))
}

// CanAccessResourceByOwnerID reports whether the caller owns the resource or is an admin.
func CanAccessResourceByOwnerID(userID uint, userRole UserRole, resourceOwnerID uint) bool {
	if userRole.IsAdmin() {
		return true
	}
	return userID == resourceOwnerID
}
