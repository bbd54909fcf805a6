package handlers

import (
	"context"

	plandto "msgdeck/internal/application/plan/dto"
	"msgdeck/internal/application/plan/usecases"
	"msgdeck/internal/domain/plan"
)

// planCatalog is the part of *usecases.PlanCatalog the plan routes use.
type planCatalog interface {
	ListActivePlans(ctx context.Context) ([]*plan.Plan, error)
	FindByID(ctx context.Context, id uint) (*plan.Plan, error)
	FindByCode(ctx context.Context, code string) (*plan.Plan, error)
	GetPricing(ctx context.Context, id uint, cycle string) (*plandto.PricingDTO, error)
	ListPlans(ctx context.Context, filter plan.Filter) ([]*plan.Plan, int64, error)
	CreatePlan(ctx context.Context, cmd usecases.CreatePlanCommand) (*plan.Plan, error)
	UpdatePlan(ctx context.Context, cmd usecases.UpdatePlanCommand) (*plan.Plan, error)
}
