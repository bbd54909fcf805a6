package mappers

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"msgdeck/internal/domain/plan"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/infrastructure/persistence/models"
)

// PlanMapper converts between plan aggregates and persistence models.
type PlanMapper interface {
	ToEntity(model *models.PlanModel) (*plan.Plan, error)
	ToModel(entity *plan.Plan) (*models.PlanModel, error)
	ToEntities(models []*models.PlanModel) ([]*plan.Plan, error)
}

type PlanMapperImpl struct{}

func NewPlanMapper() PlanMapper {
	return &PlanMapperImpl{}
}

func (m *PlanMapperImpl) ToEntity(model *models.PlanModel) (*plan.Plan, error) {
	if model == nil {
		return nil, nil
	}

	var wirePrices map[string]decimal.Decimal
	if err := unmarshalJSON(model.Prices, &wirePrices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal prices: %w", err)
	}
	prices, err := vo.PricesFromWire(wirePrices)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prices: %w", err)
	}

	var wireLimits map[string]int64
	if err := unmarshalJSON(model.Limits, &wireLimits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal limits: %w", err)
	}
	limits, err := vo.LimitsFromWire(wireLimits)
	if err != nil {
		return nil, fmt.Errorf("failed to parse limits: %w", err)
	}

	features := make(map[string]bool)
	if err := unmarshalJSON(model.Features, &features); err != nil {
		return nil, fmt.Errorf("failed to unmarshal features: %w", err)
	}

	var wireMessagePrices map[string]decimal.Decimal
	if err := unmarshalJSON(model.MessagePrices, &wireMessagePrices); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message prices: %w", err)
	}
	messagePrices := make(plan.MessagePrices, len(wireMessagePrices))
	for k, v := range wireMessagePrices {
		cat, err := vo.ParseMessageCategory(k)
		if err != nil {
			return nil, fmt.Errorf("failed to parse message prices: %w", err)
		}
		messagePrices[cat] = v
	}

	return plan.ReconstructPlan(plan.ReconstructParams{
		ID:            model.ID,
		Code:          model.Code,
		Name:          model.Name,
		Description:   model.Description,
		Family:        model.Family,
		Prices:        prices,
		Limits:        limits,
		Features:      features,
		MessagePrices: messagePrices,
		IsActive:      model.IsActive,
		IsVisible:     model.IsVisible,
		SortOrder:     model.SortOrder,
		Version:       model.Version,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	})
}

func (m *PlanMapperImpl) ToModel(entity *plan.Plan) (*models.PlanModel, error) {
	if entity == nil {
		return nil, nil
	}

	prices, err := json.Marshal(entity.Prices().Wire())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal prices: %w", err)
	}
	limits, err := json.Marshal(entity.Limits().Wire())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal limits: %w", err)
	}
	features, err := json.Marshal(entity.Features())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}
	wireMessagePrices := make(map[string]decimal.Decimal, len(entity.MessagePrices()))
	for k, v := range entity.MessagePrices() {
		wireMessagePrices[string(k)] = v
	}
	messagePrices, err := json.Marshal(wireMessagePrices)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message prices: %w", err)
	}

	return &models.PlanModel{
		ID:            entity.ID(),
		Code:          entity.Code(),
		Name:          entity.Name(),
		Description:   entity.Description(),
		Family:        entity.Family(),
		Prices:        datatypes.JSON(prices),
		Limits:        datatypes.JSON(limits),
		Features:      datatypes.JSON(features),
		MessagePrices: datatypes.JSON(messagePrices),
		IsActive:      entity.IsActive(),
		IsVisible:     entity.IsVisible(),
		SortOrder:     entity.SortOrder(),
		Version:       entity.Version(),
		CreatedAt:     entity.CreatedAt(),
		UpdatedAt:     entity.UpdatedAt(),
	}, nil
}

func (m *PlanMapperImpl) ToEntities(planModels []*models.PlanModel) ([]*plan.Plan, error) {
	entities := make([]*plan.Plan, 0, len(planModels))
	for _, model := range planModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map plan %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// unmarshalJSON leaves dst untouched for NULL or empty columns.
func unmarshalJSON(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
