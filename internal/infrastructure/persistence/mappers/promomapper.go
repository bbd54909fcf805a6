package mappers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"msgdeck/internal/domain/promo"
	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/infrastructure/persistence/models"
)

type PromoMapper interface {
	ToEntity(model *models.PromoCodeModel) (*promo.PromoCode, error)
	ToModel(entity *promo.PromoCode) *models.PromoCodeModel
	ToEntities(models []*models.PromoCodeModel) ([]*promo.PromoCode, error)
	UsageToModel(usage *promo.PromoUsage) *models.PromoUsageModel
}

type PromoMapperImpl struct{}

func NewPromoMapper() PromoMapper {
	return &PromoMapperImpl{}
}

func (m *PromoMapperImpl) ToEntity(model *models.PromoCodeModel) (*promo.PromoCode, error) {
	if model == nil {
		return nil, nil
	}

	discountType, err := promo.ParseDiscountType(model.DiscountType)
	if err != nil {
		return nil, err
	}

	cycles := make([]vo.BillingCycle, 0, len(model.ApplicableCycles))
	for _, raw := range model.ApplicableCycles {
		cycle, err := vo.ParseBillingCycle(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to parse applicable cycles: %w", err)
		}
		cycles = append(cycles, cycle)
	}

	var maxDiscount *decimal.Decimal
	if model.MaxDiscountAmount.Valid {
		v := model.MaxDiscountAmount.Decimal
		maxDiscount = &v
	}

	return promo.ReconstructPromoCode(promo.ReconstructParams{
		ID:                model.ID,
		Code:              model.Code,
		Description:       model.Description,
		DiscountType:      discountType,
		DiscountValue:     model.DiscountValue,
		MaxDiscountAmount: maxDiscount,
		ApplicablePlans:   []uint(model.ApplicablePlans),
		ApplicableCycles:  cycles,
		ValidFrom:         model.ValidFrom,
		ValidUntil:        model.ValidUntil,
		MaxUses:           model.MaxUses,
		MaxUsesPerUser:    model.MaxUsesPerUser,
		CurrentUses:       model.CurrentUses,
		IsActive:          model.IsActive,
		CreatedAt:         model.CreatedAt,
		UpdatedAt:         model.UpdatedAt,
	})
}

func (m *PromoMapperImpl) ToModel(entity *promo.PromoCode) *models.PromoCodeModel {
	if entity == nil {
		return nil
	}

	var maxDiscount decimal.NullDecimal
	if d := entity.MaxDiscountAmount(); d != nil {
		maxDiscount = decimal.NewNullDecimal(*d)
	}

	plans := make(datatypes.JSONSlice[uint], 0, len(entity.ApplicablePlans()))
	plans = append(plans, entity.ApplicablePlans()...)
	cycles := make(datatypes.JSONSlice[string], 0, len(entity.ApplicableCycles()))
	for _, c := range entity.ApplicableCycles() {
		cycles = append(cycles, c.String())
	}

	return &models.PromoCodeModel{
		ID:                entity.ID(),
		Code:              entity.Code(),
		Description:       entity.Description(),
		DiscountType:      entity.DiscountType().String(),
		DiscountValue:     entity.DiscountValue(),
		MaxDiscountAmount: maxDiscount,
		ApplicablePlans:   plans,
		ApplicableCycles:  cycles,
		ValidFrom:         entity.ValidFrom(),
		ValidUntil:        entity.ValidUntil(),
		MaxUses:           entity.MaxUses(),
		MaxUsesPerUser:    entity.MaxUsesPerUser(),
		CurrentUses:       entity.CurrentUses(),
		IsActive:          entity.IsActive(),
		CreatedAt:         entity.CreatedAt(),
		UpdatedAt:         entity.UpdatedAt(),
	}
}

func (m *PromoMapperImpl) ToEntities(promoModels []*models.PromoCodeModel) ([]*promo.PromoCode, error) {
	entities := make([]*promo.PromoCode, 0, len(promoModels))
	for _, model := range promoModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map promo code %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

func (m *PromoMapperImpl) UsageToModel(usage *promo.PromoUsage) *models.PromoUsageModel {
	return &models.PromoUsageModel{
		ID:             usage.ID,
		PromoCodeID:    usage.PromoCodeID,
		UserID:         usage.UserID,
		SubscriptionID: usage.SubscriptionID,
		TransactionID:  usage.TransactionID,
		DiscountAmount: usage.DiscountAmount,
		UsedAt:         usage.UsedAt,
	}
}
