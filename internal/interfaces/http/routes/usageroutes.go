package routes

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/interfaces/http/handlers"
	"msgdeck/internal/interfaces/http/middleware"
)

// UsageRouteConfig holds dependencies for usage routes.
type UsageRouteConfig struct {
	UsageHandler         *handlers.UsageHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupUsageRoutes configures usage routes.
func SetupUsageRoutes(api *gin.RouterGroup, cfg *UsageRouteConfig) {
	usage := api.Group("/usage")
	usage.Use(cfg.AuthMiddleware.RequireAuth())
	{
		usage.GET("/current", cfg.UsageHandler.GetCurrent)
		usage.GET("/check-limit/:type", cfg.UsageHandler.CheckLimit)
		usage.GET("/history", cfg.UsageHandler.GetHistory)

		adjust := usage.Group("")
		adjust.Use(cfg.PermissionMiddleware.RequirePermission(permission.ResourceUsage, permission.ActionAdjust))
		{
			adjust.POST("/increment", cfg.UsageHandler.Increment)
			adjust.POST("/decrement", cfg.UsageHandler.Decrement)
		}
	}
}
