package http

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/interfaces/http/middleware"
	"msgdeck/internal/interfaces/http/routes"
	"msgdeck/internal/shared/constants"
	"msgdeck/internal/shared/utils"
)

// SetupRoutes installs global middleware and every route group under /api/v1.
func (c *Container) SetupRoutes() {
	utils.RegisterBindingTagNames()

	e := c.engine
	e.Use(middleware.RequestID())
	e.Use(middleware.CustomLogger(c.log.Named("http")))
	e.Use(middleware.Recovery(c.log))
	e.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))
	e.Use(middleware.SecurityHeaders())
	if c.metrics != nil {
		e.Use(middleware.Metrics(c.metrics))
		e.GET("/metrics", gin.WrapH(c.metrics.Handler()))
	}
	e.Use(middleware.Timeout(c.cfg.Server.RequestTimeout()))

	e.GET("/health", c.hdlrs.healthHandler.HealthCheck)

	api := e.Group(constants.APIVersionPrefix)

	routes.SetupPlanRoutes(api, &routes.PlanRouteConfig{
		PlanHandler:          c.hdlrs.planHandler,
		AuthMiddleware:       c.authMiddleware,
		PermissionMiddleware: c.permissionMiddleware,
	})

	routes.SetupSubscriptionRoutes(api, &routes.SubscriptionRouteConfig{
		SubscriptionHandler:  c.hdlrs.subscriptionHandler,
		AuthMiddleware:       c.authMiddleware,
		PermissionMiddleware: c.permissionMiddleware,
	})

	routes.SetupUsageRoutes(api, &routes.UsageRouteConfig{
		UsageHandler:         c.hdlrs.usageHandler,
		AuthMiddleware:       c.authMiddleware,
		PermissionMiddleware: c.permissionMiddleware,
	})

	routes.SetupPromoRoutes(api, &routes.PromoRouteConfig{
		PromoHandler:         c.hdlrs.promoHandler,
		AuthMiddleware:       c.authMiddleware,
		PermissionMiddleware: c.permissionMiddleware,
	})

	routes.SetupTransactionRoutes(api, &routes.TransactionRouteConfig{
		TransactionHandler:   c.hdlrs.transactionHandler,
		AuthMiddleware:       c.authMiddleware,
		PermissionMiddleware: c.permissionMiddleware,
	})
}

// GetEngine returns the Gin engine
func (c *Container) GetEngine() *gin.Engine {
	return c.engine
}
