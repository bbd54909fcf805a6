package routes

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/interfaces/http/handlers"
	"msgdeck/internal/interfaces/http/middleware"
)

// PromoRouteConfig holds dependencies for promo code routes.
type PromoRouteConfig struct {
	PromoHandler         *handlers.PromoHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupPromoRoutes configures promo code routes.
func SetupPromoRoutes(api *gin.RouterGroup, cfg *PromoRouteConfig) {
	promos := api.Group("/promo-codes")
	{
		promos.GET("/active", cfg.PromoHandler.ListActive)

		user := promos.Group("")
		user.Use(cfg.AuthMiddleware.RequireAuth())
		{
			user.POST("/validate", cfg.PromoHandler.Validate)
			user.POST("/calculate-discount", cfg.PromoHandler.CalculateDiscount)
		}

		pm := cfg.PermissionMiddleware
		admin := promos.Group("")
		admin.Use(cfg.AuthMiddleware.RequireAuth())
		{
			admin.GET("", pm.RequirePermission(permission.ResourcePromoCode, permission.ActionRead), cfg.PromoHandler.ListPromos)
			admin.POST("", pm.RequirePermission(permission.ResourcePromoCode, permission.ActionCreate), cfg.PromoHandler.CreatePromo)
			admin.GET("/:id", pm.RequirePermission(permission.ResourcePromoCode, permission.ActionRead), cfg.PromoHandler.GetPromo)
			admin.PUT("/:id", pm.RequirePermission(permission.ResourcePromoCode, permission.ActionUpdate), cfg.PromoHandler.UpdatePromo)
			admin.DELETE("/:id", pm.RequirePermission(permission.ResourcePromoCode, permission.ActionDelete), cfg.PromoHandler.DeletePromo)
		}
	}
}
