package mappers

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	vo "msgdeck/internal/domain/shared/valueobjects"
	"msgdeck/internal/domain/transaction"
	txvo "msgdeck/internal/domain/transaction/valueobjects"
	"msgdeck/internal/infrastructure/persistence/models"
)

type TransactionMapper interface {
	ToEntity(model *models.TransactionModel) (*transaction.Transaction, error)
	ToModel(entity *transaction.Transaction) *models.TransactionModel
	ToEntities(models []*models.TransactionModel) ([]*transaction.Transaction, error)
}

type TransactionMapperImpl struct{}

func NewTransactionMapper() TransactionMapper {
	return &TransactionMapperImpl{}
}

func (m *TransactionMapperImpl) ToEntity(model *models.TransactionModel) (*transaction.Transaction, error) {
	if model == nil {
		return nil, nil
	}

	txType, err := txvo.ParseTransactionType(model.Type)
	if err != nil {
		return nil, err
	}
	status, err := txvo.ParsePaymentStatus(model.PaymentStatus)
	if err != nil {
		return nil, err
	}
	var cycle vo.BillingCycle
	if model.BillingCycle != "" {
		if cycle, err = vo.ParseBillingCycle(model.BillingCycle); err != nil {
			return nil, err
		}
	}

	var refundAmount *decimal.Decimal
	if model.RefundAmount.Valid {
		v := model.RefundAmount.Decimal
		refundAmount = &v
	}

	return transaction.ReconstructTransaction(transaction.ReconstructParams{
		ID:               model.ID,
		Reference:        model.Reference,
		SubscriptionID:   model.SubscriptionID,
		UserID:           model.UserID,
		Type:             txType,
		BillingCycle:     cycle,
		Amount:           model.Amount,
		DiscountAmount:   model.DiscountAmount,
		Currency:         model.Currency,
		PaymentMethod:    model.PaymentMethod,
		PaymentStatus:    status,
		GatewayReference: model.GatewayReference,
		InvoiceNumber:    model.InvoiceNumber,
		Description:      model.Description,
		Metadata:         map[string]any(model.Metadata),
		RefundedAt:       model.RefundedAt,
		RefundAmount:     refundAmount,
		RefundReason:     model.RefundReason,
		RefundedBy:       model.RefundedBy,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	})
}

func (m *TransactionMapperImpl) ToModel(entity *transaction.Transaction) *models.TransactionModel {
	if entity == nil {
		return nil
	}

	var refundAmount decimal.NullDecimal
	if r := entity.RefundAmount(); r != nil {
		refundAmount = decimal.NewNullDecimal(*r)
	}

	return &models.TransactionModel{
		ID:               entity.ID(),
		Reference:        entity.Reference(),
		SubscriptionID:   entity.SubscriptionID(),
		UserID:           entity.UserID(),
		Type:             entity.Type().String(),
		BillingCycle:     entity.BillingCycle().String(),
		Amount:           entity.Amount(),
		DiscountAmount:   entity.DiscountAmount(),
		Currency:         entity.Currency(),
		PaymentMethod:    entity.PaymentMethod(),
		PaymentStatus:    entity.PaymentStatus().String(),
		GatewayReference: entity.GatewayReference(),
		InvoiceNumber:    entity.InvoiceNumber(),
		Description:      entity.Description(),
		Metadata:         datatypes.JSONMap(entity.Metadata()),
		RefundedAt:       entity.RefundedAt(),
		RefundAmount:     refundAmount,
		RefundReason:     entity.RefundReason(),
		RefundedBy:       entity.RefundedBy(),
		CreatedAt:        entity.CreatedAt(),
		UpdatedAt:        entity.UpdatedAt(),
	}
}

func (m *TransactionMapperImpl) ToEntities(txModels []*models.TransactionModel) ([]*transaction.Transaction, error) {
	entities := make([]*transaction.Transaction, 0, len(txModels))
	for _, model := range txModels {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map transaction %d: %w", model.ID, err)
		}
		entities = append(entities, entity)
	}
	return entities, nil
}
