package routes

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/interfaces/http/handlers"
	"msgdeck/internal/interfaces/http/middleware"
	"msgdeck/internal/shared/authorization"
)

// PlanRouteConfig holds dependencies for plan routes.
type PlanRouteConfig struct {
	PlanHandler          *handlers.PlanHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupPlanRoutes configures plan routes.
func SetupPlanRoutes(api *gin.RouterGroup, cfg *PlanRouteConfig) {
	plans := api.Group("/plans")
	{
		// Public endpoints (no authentication required)
		plans.GET("", cfg.PlanHandler.ListPublicPlans)
		plans.GET("/code/:code", cfg.PlanHandler.GetPlanByCode)
		plans.GET("/:id", cfg.PlanHandler.GetPlan)
		plans.GET("/:id/pricing", cfg.PlanHandler.GetPricing)

		plansAdmin := plans.Group("")
		plansAdmin.Use(cfg.AuthMiddleware.RequireAuth())
		{
			plansAdmin.POST("", cfg.PermissionMiddleware.RequirePermission(permission.ResourcePlan, permission.ActionCreate), cfg.PlanHandler.CreatePlan)
			plansAdmin.PUT("/:id", cfg.PermissionMiddleware.RequirePermission(permission.ResourcePlan, permission.ActionUpdate), cfg.PlanHandler.UpdatePlan)
		}
	}

	admin := api.Group("/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), authorization.RequireAdmin())
	{
		admin.GET("/plans", cfg.PlanHandler.ListPlans)
	}
}
