package routes

import (
	"github.com/gin-gonic/gin"

	"msgdeck/internal/infrastructure/permission"
	"msgdeck/internal/interfaces/http/handlers"
	"msgdeck/internal/interfaces/http/middleware"
)

// TransactionRouteConfig holds dependencies for transaction routes.
type TransactionRouteConfig struct {
	TransactionHandler   *handlers.TransactionHandler
	AuthMiddleware       *middleware.AuthMiddleware
	PermissionMiddleware *middleware.PermissionMiddleware
}

// SetupTransactionRoutes configures transaction routes.
func SetupTransactionRoutes(api *gin.RouterGroup, cfg *TransactionRouteConfig) {
	pm := cfg.PermissionMiddleware
	txs := api.Group("/transactions")
	txs.Use(cfg.AuthMiddleware.RequireAuth())
	{
		txs.GET("", cfg.TransactionHandler.ListTransactions)
		txs.GET("/stats/revenue", pm.RequirePermission(permission.ResourceTransaction, permission.ActionStats), cfg.TransactionHandler.RevenueStats)
		txs.GET("/:id", cfg.TransactionHandler.GetTransaction)
		txs.PUT("/:id/status", pm.RequirePermission(permission.ResourceTransaction, permission.ActionUpdateStatus), cfg.TransactionHandler.UpdatePaymentStatus)
		txs.POST("/:id/refund", pm.RequirePermission(permission.ResourceTransaction, permission.ActionRefund), cfg.TransactionHandler.Refund)
	}
}
