package handlers

import (
	"time"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
)

type UsageRecordResponse struct {
	ID           string                 `json:"id"`
	Type         subscription.UsageType `json:"type"`
	Amount       *int64                 `json:"amount,omitempty"`
	ResourceType string                 `json:"resourceType,omitempty"`
	ResourceID   string                 `json:"resourceId,omitempty"`
	Metadata     map[string]any         `json:"metadata,omitempty"`
	PeriodStart  time.Time              `json:"periodStart"`
	PeriodEnd    time.Time              `json:"periodEnd"`
	CreatedAt    time.Time              `json:"createdAt"`
}

type ConsumeUsageResponse struct {
	Record UsageRecordResponse            `json:"record"`
	Checks []entitlement.LimitCheckResult `json:"checks"`
}

func toUsageRecordResponse(r *subscription.UsageRecord) UsageRecordResponse {
	return UsageRecordResponse{
		ID:           r.PublicID(),
		Type:         r.Type(),
		Amount:       r.Amount(),
		ResourceType: r.ResourceType(),
		ResourceID:   r.ResourceID(),
		Metadata:     r.Metadata(),
		PeriodStart:  r.PeriodStart(),
		PeriodEnd:    r.PeriodEnd(),
		CreatedAt:    r.CreatedAt(),
	}
}
