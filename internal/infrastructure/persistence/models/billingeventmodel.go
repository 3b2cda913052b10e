package models

import (
	"time"

	"gorm.io/datatypes"

	"github.com/lexora-inc/lexora/internal/shared/constants"
)

// BillingEventModel logs every verified webhook delivery. The unique
// (provider, event_id) pair lets handlers detect redeliveries.
type BillingEventModel struct {
	ID             uint    `gorm:"primarykey"`
	Provider       string  `gorm:"not null;size:20;uniqueIndex:idx_billing_event_provider_event,priority:1"`
	EventID        string  `gorm:"not null;size:255;uniqueIndex:idx_billing_event_provider_event,priority:2"`
	EventType      string  `gorm:"not null;size:64"`
	OrganizationID *string `gorm:"size:64;index"`
	Payload        datatypes.JSON
	CreatedAt      time.Time
}

// TableName specifies the table name for GORM
func (BillingEventModel) TableName() string {
	return constants.TableBillingEvents
}
