package http

import (
	"fmt"

	billingUsecases "msgdeck/internal/application/billing/usecases"
	planUsecases "msgdeck/internal/application/plan/usecases"
	promoUsecases "msgdeck/internal/application/promo/usecases"
	subscriptionUsecases "msgdeck/internal/application/subscription/usecases"
	transactionUsecases "msgdeck/internal/application/transaction/usecases"
	usageUsecases "msgdeck/internal/application/usage/usecases"
	"msgdeck/internal/shared/db"
)

// allUseCases holds all use case instances used by the application.
type allUseCases struct {
	planCatalog    *planUsecases.PlanCatalog
	promoEngine    *promoUsecases.PromoEngine
	transactionLog *transactionUsecases.TransactionLog
	ledger         *subscriptionUsecases.SubscriptionLedger
	usageMeter     *usageUsecases.UsageMeter
	current        *subscriptionUsecases.CurrentSubscriptionUseCase
	subscribe      *billingUsecases.SubscribeUseCase
}

// initUseCases wires the billing core. Order matters: the ledger appends through
// the transaction log, and the meter resolves limits through the ledger and catalogue.
func (c *Container) initUseCases() error {
	cacheCfg := c.cfg.Cache
	currency := c.cfg.Billing.Currency
	txm := db.NewTransactionManager(c.db)

	confirmer, err := transactionUsecases.NewPaymentConfirmer(c.cfg.Billing.PaymentConfirmation)
	if err != nil {
		return fmt.Errorf("failed to build payment confirmer: %w", err)
	}

	ucs := &allUseCases{}
	ucs.planCatalog = planUsecases.NewPlanCatalog(c.repos.planRepo, c.store, cacheCfg.PlanTTL(), currency, c.log.Named("plans"))
	ucs.promoEngine = promoUsecases.NewPromoEngine(c.repos.promoRepo, txm, c.store, cacheCfg.PromoTTL(), ucs.planCatalog, c.log.Named("promos"))
	ucs.transactionLog = transactionUsecases.NewTransactionLog(c.repos.transactionRepo, txm, c.publisher, c.log.Named("transactions"))
	ucs.ledger = subscriptionUsecases.NewSubscriptionLedger(
		c.repos.subscriptionRepo, txm, ucs.transactionLog, c.store, cacheCfg.SubscriptionTTL(),
		c.publisher, c.metrics, c.log.Named("subscriptions"),
	)
	ucs.usageMeter = usageUsecases.NewUsageMeter(
		c.repos.usageRepo, ucs.ledger, ucs.planCatalog, c.store, cacheCfg.UsageTTL(),
		c.metrics, c.log.Named("usage"),
	)
	ucs.current = subscriptionUsecases.NewCurrentSubscriptionUseCase(ucs.ledger, ucs.planCatalog, ucs.usageMeter)
	ucs.subscribe = billingUsecases.NewSubscribeUseCase(
		txm, ucs.planCatalog, ucs.promoEngine, ucs.ledger, ucs.transactionLog, ucs.usageMeter,
		confirmer, c.publisher, c.metrics, currency, c.cfg.Billing.SubscribeTimeout(), c.log.Named("billing"),
	)

	c.ucs = ucs
	return nil
}
