// Package models holds the gorm persistence models. They are the anti-corruption
// layer between domain aggregates and database rows.
package models

import (
	"time"

	"gorm.io/datatypes"

	"msgdeck/internal/shared/constants"
)

// PlanModel represents the database persistence model for plans.
// Prices, limits, features and message prices are JSON columns.
type PlanModel struct {
	ID            uint   `gorm:"primarykey"`
	Code          string `gorm:"uniqueIndex:uk_plans_code;not null;size:50"`
	Name          string `gorm:"not null;size:100"`
	Description   string `gorm:"type:text"`
	Family        string `gorm:"size:50;index:idx_plans_family"`
	Prices        datatypes.JSON
	Limits        datatypes.JSON
	Features      datatypes.JSON
	MessagePrices datatypes.JSON
	IsActive      bool `gorm:"not null;default:true;index:idx_plans_listing,priority:1"`
	IsVisible     bool `gorm:"not null;default:true;index:idx_plans_listing,priority:2"`
	SortOrder     int  `gorm:"not null;default:0"`
	Version       int  `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName specifies the table name for GORM
func (PlanModel) TableName() string {
	return constants.TablePlans
}
