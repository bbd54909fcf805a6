package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"msgdeck/internal/shared/constants"
)

// TransactionModel is an append-only ledger row.
type TransactionModel struct {
	ID               uint                `gorm:"primarykey"`
	Reference        string              `gorm:"uniqueIndex:uk_transactions_reference;not null;size:32"`
	SubscriptionID   uint                `gorm:"index"`
	UserID           uint                `gorm:"not null;index:idx_transactions_user_created,priority:1"`
	Type             string              `gorm:"not null;size:20"`
	BillingCycle     string              `gorm:"size:20"`
	Amount           decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	DiscountAmount   decimal.Decimal     `gorm:"type:decimal(12,2);not null;default:0"`
	Currency         string              `gorm:"not null;size:3"`
	PaymentMethod    string              `gorm:"size:50"`
	PaymentStatus    string              `gorm:"not null;size:20;index:idx_transactions_status_created,priority:1"`
	GatewayReference string              `gorm:"size:100"`
	InvoiceNumber    string              `gorm:"uniqueIndex:uk_transactions_invoice;size:32"`
	Description      string              `gorm:"size:500"`
	Metadata         datatypes.JSONMap
	RefundedAt       *time.Time
	RefundAmount     decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	RefundReason     string              `gorm:"size:500"`
	RefundedBy       *uint
	CreatedAt        time.Time `gorm:"index:idx_transactions_user_created,priority:2;index:idx_transactions_status_created,priority:2"`
	UpdatedAt        time.Time
}

// TableName specifies the table name for GORM
func (TransactionModel) TableName() string {
	return constants.TableTransactions
}
