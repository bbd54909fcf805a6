package models

import (
	"time"

	"msgdeck/internal/shared/constants"
)

// UsageRecordModel is one row per (user, month). Counters are updated with atomic
// column arithmetic, never read-modify-write.
type UsageRecordModel struct {
	ID                uint   `gorm:"primarykey"`
	UserID            uint   `gorm:"not null;uniqueIndex:uk_usage_records_user_month,priority:1"`
	Month             string `gorm:"not null;size:7;uniqueIndex:uk_usage_records_user_month,priority:2"`
	SubscriptionID    uint   `gorm:"index"`
	ContactsCount     int64  `gorm:"not null;default:0"`
	TemplatesCount    int64  `gorm:"not null;default:0"`
	CampaignsCount    int64  `gorm:"not null;default:0"`
	MessagesSent      int64  `gorm:"not null;default:0"`
	TeamMembersCount  int64  `gorm:"not null;default:0"`
	NumbersCount      int64  `gorm:"not null;default:0"`
	MarketingMessages int64  `gorm:"not null;default:0"`
	UtilityMessages   int64  `gorm:"not null;default:0"`
	AuthMessages      int64  `gorm:"not null;default:0"`
	LastResetAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TableName specifies the table name for GORM
func (UsageRecordModel) TableName() string {
	return constants.TableUsageRecords
}
