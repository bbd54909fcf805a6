package models

// All returns every model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&PlanModel{},
		&SubscriptionModel{},
		&PromoCodeModel{},
		&PromoUsageModel{},
		&UsageRecordModel{},
		&TransactionModel{},
	}
}
