package http

import (
	"msgdeck/internal/interfaces/http/handlers"
	"msgdeck/internal/shared/services/markdown"
)

// allHandlers holds all HTTP handler instances used by the application.
type allHandlers struct {
	healthHandler       *handlers.HealthHandler
	planHandler         *handlers.PlanHandler
	subscriptionHandler *handlers.SubscriptionHandler
	usageHandler        *handlers.UsageHandler
	promoHandler        *handlers.PromoHandler
	transactionHandler  *handlers.TransactionHandler
}

func (c *Container) initHandlers() error {
	md := markdown.NewMarkdownService()

	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}

	c.hdlrs = &allHandlers{
		healthHandler:       handlers.NewHealthHandler(sqlDB, c.version, c.log),
		planHandler:         handlers.NewPlanHandler(c.ucs.planCatalog, md, c.log),
		subscriptionHandler: handlers.NewSubscriptionHandler(c.ucs.subscribe, c.ucs.current, c.ucs.ledger, c.log),
		usageHandler:        handlers.NewUsageHandler(c.ucs.usageMeter, c.log),
		promoHandler:        handlers.NewPromoHandler(c.ucs.promoEngine, md, c.log),
		transactionHandler:  handlers.NewTransactionHandler(c.ucs.transactionLog, c.log),
	}
	return nil
}
