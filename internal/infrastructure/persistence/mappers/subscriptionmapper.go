package mappers

import (
	"fmt"

	"msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/subscription"
	subvo "msgdeck/internal/domain/subscription/valueobjects"
	"msgdeck/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
	ToEntities(models []*models.SubscriptionModel) ([]*subscription.Subscription, error)
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	status := subvo.SubscriptionStatus(model.Status)
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}
	cycle, err := valueobjects.ParseBillingCycle(model.BillingCycle)
	if err != nil {
		return nil, fmt.Errorf("failed to parse billing cycle: %w", err)
	}

	return subscription.ReconstructSubscription(subscription.ReconstructParams{
		ID:                 model.ID,
		UserID:             model.UserID,
		PlanID:             model.PlanID,
		BillingCycle:       cycle,
		AmountPaid:         model.AmountPaid,
		Currency:           model.Currency,
		Status:             status,
		StartDate:          model.StartDate,
		EndDate:            model.EndDate,
		NextBillingDate:    model.NextBillingDate,
		AutoRenew:          model.AutoRenew,
		TrialStart:         model.TrialStart,
		TrialEnd:           model.TrialEnd,
		CancelledAt:        model.CancelledAt,
		CancellationReason: model.CancellationReason,
		CancelledBy:        model.CancelledBy,
		Version:            model.Version,
		CreatedAt:          model.CreatedAt,
		UpdatedAt:          model.UpdatedAt,
	})
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}
	return &models.SubscriptionModel{
		ID:                 entity.ID(),
		UserID:             entity.UserID(),
		PlanID:             entity.PlanID(),
		BillingCycle:       entity.BillingCycle().String(),
		AmountPaid:         entity.AmountPaid(),
		Currency:           entity.Currency(),
		Status:             entity.Status().String(),
		StartDate:          entity.StartDate(),
		EndDate:            entity.EndDate(),
		NextBillingDate:    entity.NextBillingDate(),
		AutoRenew:          entity.AutoRenew(),
		TrialStart:         entity.TrialStart(),
		TrialEnd:           entity.TrialEnd(),
		CancelledAt:        entity.CancelledAt(),
		CancellationReason: entity.CancellationReason(),
		CancelledBy:        entity.CancelledBy(),
		ActiveUserKey:      entity.ActiveUserKey(),
		Version:            entity.Version(),
		CreatedAt:          entity.CreatedAt(),
		UpdatedAt:          entity.UpdatedAt(),
	}
}

func (m *SubscriptionMapperImpl) ToEntities(subModels []*models.SubscriptionModel) ([]*subscription.Subscription, error) {
	entities := make([]*subscription.Subscription, 0, len(subModels))
	for _, model := range subModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map subscription %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
