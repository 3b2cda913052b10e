package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/lexora-inc/lexora/internal/shared/constants"
)

// UsageRecordModel is append-only; rows are never updated.
type UsageRecordModel struct {
	ID             uint      `gorm:"primarykey"`
	PublicID       string    `gorm:"uniqueIndex;not null;size:36"`
	SubscriptionID uint      `gorm:"not null;index:idx_usage_sub_type_created,priority:1"`
	Type           string    `gorm:"not null;size:32;index:idx_usage_sub_type_created,priority:2"`
	Amount         *int64
	ResourceType   *string   `gorm:"size:64"`
	ResourceID     *string   `gorm:"size:128"`
	PeriodStart    time.Time `gorm:"not null"`
	PeriodEnd      time.Time `gorm:"not null"`
	Metadata       datatypes.JSON
	CreatedAt      time.Time `gorm:"not null;index:idx_usage_sub_type_created,priority:3"`
}

// TableName specifies the table name for GORM
func (UsageRecordModel) TableName() string {
	return constants.TableUsageRecords
}
