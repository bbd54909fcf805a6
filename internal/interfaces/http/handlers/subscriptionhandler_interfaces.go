package handlers

import (
	"context"

	billingdto "msgdeck/internal/application/billing/dto"
	billingusecases "msgdeck/internal/application/billing/usecases"
	subdto "msgdeck/internal/application/subscription/dto"
	"msgdeck/internal/application/subscription/usecases"
	"msgdeck/internal/domain/subscription"
	"msgdeck/internal/domain/transaction"
)

// Use case interfaces for SubscriptionHandler

type subscribeUseCase interface {
	Execute(ctx context.Context, cmd billingusecases.SubscribeCommand) (*billingdto.SubscribeResult, error)
}

type currentSubscriptionUseCase interface {
	Execute(ctx context.Context, userID uint) (*subdto.CurrentSubscriptionDTO, error)
}

type subscriptionLedger interface {
	ListHistory(ctx context.Context, userID uint, page, pageSize int) ([]*subscription.Subscription, int64, error)
	Cancel(ctx context.Context, cmd usecases.CancelCommand) (*subscription.Subscription, error)
	ToggleAutoRenew(ctx context.Context, id, userID uint, enabled bool) (*subscription.Subscription, error)
	Renew(ctx context.Context, cmd usecases.RenewCommand) (*subscription.Subscription, *transaction.Transaction, error)
}
