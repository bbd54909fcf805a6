package http

import (
	"msgdeck/internal/domain/plan"
	"msgdeck/internal/domain/promo"
	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/transaction"
	"msgdeck/internal/domain/usage"
	"msgdeck/internal/infrastructure/repository"
)

// repositories holds all repository instances used by the application.
type repositories struct {
	planRepo         plan.Repository
	subscriptionRepo subscription.Repository
	transactionRepo  transaction.Repository
	usageRepo        usage.Repository
	promoRepo        promo.Repository
}

func (c *Container) initRepositories() {
	c.repos = &repositories{
		planRepo:         repository.NewPlanRepository(c.db, c.log),
		subscriptionRepo: repository.NewSubscriptionRepository(c.db, c.log),
		transactionRepo:  repository.NewTransactionRepository(c.db, c.log),
		usageRepo:        repository.NewUsageRepository(c.db, c.log),
		promoRepo:        repository.NewPromoRepository(c.db, c.log),
	}
}
