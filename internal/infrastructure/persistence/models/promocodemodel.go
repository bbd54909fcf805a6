package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"msgdeck/internal/shared/constants"
)

// PromoCodeModel represents the database persistence model for promo codes.
// MaxUses NULL means no global cap.
type PromoCodeModel struct {
	ID                uint                `gorm:"primarykey"`
	Code              string              `gorm:"uniqueIndex:uk_promo_codes_code;not null;size:32"`
	Description       string              `gorm:"size:500"`
	DiscountType      string              `gorm:"not null;size:20"`
	DiscountValue     decimal.Decimal     `gorm:"type:decimal(12,2);not null"`
	MaxDiscountAmount decimal.NullDecimal `gorm:"type:decimal(12,2)"`
	ApplicablePlans   datatypes.JSONSlice[uint]
	ApplicableCycles  datatypes.JSONSlice[string]
	ValidFrom         time.Time `gorm:"not null"`
	ValidUntil        time.Time `gorm:"not null;index:idx_promo_codes_active_until,priority:2"`
	MaxUses           *int
	MaxUsesPerUser    int  `gorm:"not null;default:1"`
	CurrentUses       int  `gorm:"not null;default:0"`
	IsActive          bool `gorm:"not null;default:true;index:idx_promo_codes_active_until,priority:1"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for GORM
func (PromoCodeModel) TableName() string {
	return constants.TablePromoCodes
}

// PromoUsageModel is one redemption row.
type PromoUsageModel struct {
	ID             uint            `gorm:"primarykey"`
	PromoCodeID    uint            `gorm:"not null;index:idx_promo_usages_code_user,priority:1"`
	UserID         uint            `gorm:"not null;index:idx_promo_usages_code_user,priority:2"`
	SubscriptionID uint            `gorm:"index"`
	TransactionID  uint            `gorm:"index"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	UsedAt         time.Time       `gorm:"not null"`
}

// TableName specifies the table name for GORM
func (PromoUsageModel) TableName() string {
	return constants.TablePromoUsages
}
