package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"msgdeck/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions.
// ActiveUserKey equals UserID while the row is ACTIVE and is NULL otherwise; its unique
// index allows at most one ACTIVE subscription per user on every supported database.
type SubscriptionModel struct {
	ID                 uint            `gorm:"primarykey"`
	UserID             uint            `gorm:"not null;index:idx_subscriptions_user_created,priority:1"`
	PlanID             uint            `gorm:"not null;index:idx_subscriptions_plan"`
	BillingCycle       string          `gorm:"not null;size:20"`
	AmountPaid         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Currency           string          `gorm:"not null;size:3"`
	Status             string          `gorm:"not null;size:20;index:idx_subscriptions_status_end,priority:1"`
	StartDate          time.Time       `gorm:"not null"`
	EndDate            *time.Time      `gorm:"index:idx_subscriptions_status_end,priority:2"`
	NextBillingDate    *time.Time
	AutoRenew          bool `gorm:"not null;default:false"`
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CancelledAt        *time.Time
	CancellationReason string `gorm:"size:500"`
	CancelledBy        *uint
	ActiveUserKey      *uint `gorm:"uniqueIndex:uk_subscriptions_active_user"`
	Version            int   `gorm:"not null;default:1"`
	CreatedAt          time.Time `gorm:"index:idx_subscriptions_user_created,priority:2"`
	UpdatedAt          time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
