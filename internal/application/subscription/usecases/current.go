package usecases

import (
	"context"

	"golang.org/x/sync/errgroup"

	"msgdeck/internal/application/subscription/dto"
	usagedto "msgdeck/internal/application/usage/dto"
	"msgdeck/internal/domain/plan"
)

type PlanFinder interface {
	FindByID(ctx context.Context, id uint) (*plan.Plan, error)
}

type UsageReader interface {
	GetCurrentUsage(ctx context.Context, userID uint) (*usagedto.CurrentUsageDTO, error)
}

// CurrentSubscriptionUseCase assembles the dashboard snapshot. The plan and the usage
// are loaded concurrently.
type CurrentSubscriptionUseCase struct {
	ledger *SubscriptionLedger
	plans  PlanFinder
	usage  UsageReader
}

func NewCurrentSubscriptionUseCase(ledger *SubscriptionLedger, plans PlanFinder, usage UsageReader) *CurrentSubscriptionUseCase {
	return &CurrentSubscriptionUseCase{
		ledger: ledger,
		plans:  plans,
		usage:  usage,
	}
}

// Execute returns nil when the user has no active subscription.
func (uc *CurrentSubscriptionUseCase) Execute(ctx context.Context, userID uint) (*dto.CurrentSubscriptionDTO, error) {
	sub, err := uc.ledger.GetActiveSubscription(ctx, userID)
	if err != nil || sub == nil {
		return nil, err
	}

	var (
		p     *plan.Plan
		usage *usagedto.CurrentUsageDTO
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		p, err = uc.plans.FindByID(gctx, sub.PlanID())
		return err
	})
	g.Go(func() (err error) {
		usage, err = uc.usage.GetCurrentUsage(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dto.CurrentSubscriptionDTO{
		Subscription: dto.ToSubscriptionDTO(sub),
		PlanCode:     p.Code(),
		PlanName:     p.Name(),
		Features:     p.Features(),
		Usage:        usage,
	}, nil
}
