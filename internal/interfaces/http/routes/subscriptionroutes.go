package routes

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/interfaces/http/handlers"
	"msgdeck/internal/interfaces/http/middleware"
)

// SubscriptionRouteConfig holds dependencies for subscription routes.
type SubscriptionRouteConfig struct {
	SubscriptionHandler  *handlers.SubscriptionHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupSubscriptionRoutes configures subscription routes. Ownership of :id is
// checked by the ledger, admins bypass it.
func SetupSubscriptionRoutes(api *gin.RouterGroup, cfg *SubscriptionRouteConfig) {
	subs := api.Group("/subscriptions")
	subs.Use(cfg.AuthMiddleware.RequireAuth())
	{
		subs.POST("/subscribe", cfg.SubscriptionHandler.Subscribe)
		subs.GET("/current", cfg.SubscriptionHandler.GetCurrent)
		subs.GET("/history", cfg.SubscriptionHandler.ListHistory)
		subs.POST("/:id/cancel", cfg.SubscriptionHandler.Cancel)
		subs.PUT("/:id/auto-renew", cfg.SubscriptionHandler.SetAutoRenew)
		subs.POST("/:id/renew",
			cfg.PermissionMiddleware.RequirePermission(permission.ResourceSubscription, permission.ActionRenew),
			cfg.SubscriptionHandler.Renew,
		)
	}
}
