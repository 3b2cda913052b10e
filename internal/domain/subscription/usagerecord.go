package subscription

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
)

// UsageType classifies a usage record.
type UsageType string

const (
	UsageDocumentGenerated UsageType = "DOCUMENT_GENERATED"
	UsageComplianceCheck   UsageType = "COMPLIANCE_CHECK"
	UsageAiTokenUsage      UsageType = "AI_TOKEN_USAGE"
	UsageStorageUsed       UsageType = "STORAGE_USED"
	UsageTeamMemberAdded   UsageType = "TEAM_MEMBER_ADDED"
)

var usageTypes = []UsageType{
	UsageDocumentGenerated,
	UsageComplianceCheck,
	UsageAiTokenUsage,
	UsageStorageUsed,
	UsageTeamMemberAdded,
}

func UsageTypes() []UsageType {
	out := make([]UsageType, len(usageTypes))
	copy(out, usageTypes)
	return out
}

func (t UsageType) IsValid() bool {
	for _, candidate := range usageTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// Aggregation is how records are folded into a usage figure.
type Aggregation int

const (
	AggregateCount Aggregation = iota
	AggregateSum
)

// Meter describes how a period total for one limit is derived from records.
type Meter struct {
	Limit       plan.LimitKey
	Type        UsageType
	Aggregation Aggregation
}

var meters = []Meter{
	{Limit: plan.LimitDocuments, Type: UsageDocumentGenerated, Aggregation: AggregateCount},
	{Limit: plan.LimitComplianceChecks, Type: UsageComplianceCheck, Aggregation: AggregateCount},
	{Limit: plan.LimitAiGenerations, Type: UsageAiTokenUsage, Aggregation: AggregateCount},
	{Limit: plan.LimitAiTokens, Type: UsageAiTokenUsage, Aggregation: AggregateSum},
}

// MeterFor returns the meter for a limit that is tracked per billing period.
// Standing quotas (seats, storage, templates, e-signature envelopes) are
// reported by the caller and have no meter.
func MeterFor(k plan.LimitKey) (Meter, bool) {
	for _, m := range meters {
		if m.Limit == k {
			return m, true
		}
	}
	return Meter{}, false
}

// Meters lists every metered limit.
func Meters() []Meter {
	out := make([]Meter, len(meters))
	copy(out, meters)
	return out
}

// UsageRecord is an append-only consumption event bucketed by billing period.
type UsageRecord struct {
	id             uint
	publicID       string
	subscriptionID uint
	usageType      UsageType
	amount         *int64
	resourceType   string
	resourceID     string
	periodStart    time.Time
	periodEnd      time.Time
	metadata       map[string]any
	createdAt      time.Time
}

// NewUsageRecord creates a record stamped at createdAt inside period.
func NewUsageRecord(
	subscriptionID uint,
	usageType UsageType,
	amount *int64,
	resourceType, resourceID string,
	period biztime.Period,
	createdAt time.Time,
) (*UsageRecord, error) {
	if subscriptionID == 0 {
		return nil, fmt.Errorf("subscription ID is required")
	}
	if !usageType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUsageType, usageType)
	}
	if amount != nil && *amount < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidUsageAmount, *amount)
	}
	createdAt = createdAt.UTC()
	if !period.Contains(createdAt) {
		return nil, fmt.Errorf("%w: %s not in [%s, %s]", ErrUsageOutsidePeriod,
			createdAt.Format(time.RFC3339), period.Start.Format(time.RFC3339), period.End.Format(time.RFC3339))
	}

	return &UsageRecord{
		publicID:       uuid.NewString(),
		subscriptionID: subscriptionID,
		usageType:      usageType,
		amount:         amount,
		resourceType:   resourceType,
		resourceID:     resourceID,
		periodStart:    period.Start,
		periodEnd:      period.End,
		metadata:       map[string]any{},
		createdAt:      createdAt,
	}, nil
}

// ReconstructUsageRecord rebuilds a record from persistence.
func ReconstructUsageRecord(
	id uint,
	publicID string,
	subscriptionID uint,
	usageType UsageType,
	amount *int64,
	resourceType, resourceID string,
	periodStart, periodEnd time.Time,
	metadata map[string]any,
	createdAt time.Time,
) *UsageRecord {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &UsageRecord{
		id:             id,
		publicID:       publicID,
		subscriptionID: subscriptionID,
		usageType:      usageType,
		amount:         amount,
		resourceType:   resourceType,
		resourceID:     resourceID,
		periodStart:    periodStart,
		periodEnd:      periodEnd,
		metadata:       metadata,
		createdAt:      createdAt,
	}
}

func (r *UsageRecord) ID() uint { return r.id }
func (r *UsageRecord) PublicID() string { return r.publicID }
func (r *UsageRecord) SubscriptionID() uint { return r.subscriptionID }
func (r *UsageRecord) Type() UsageType { return r.usageType }
func (r *UsageRecord) Amount() *int64 { return r.amount }
func (r *UsageRecord) ResourceType() string { return r.resourceType }
func (r *UsageRecord) ResourceID() string { return r.resourceID }
func (r *UsageRecord) PeriodStart() time.Time { return r.periodStart }
func (r *UsageRecord) PeriodEnd() time.Time { return r.periodEnd }
func (r *UsageRecord) Metadata() map[string]any { return r.metadata }
func (r *UsageRecord) CreatedAt() time.Time { return r.createdAt }

// SetMetadata attaches free-form context such as the model used.
func (r *UsageRecord) SetMetadata(key string, value any) {
	r.metadata[key] = value
}

// SetID sets the record ID (only for persistence layer use)
func (r *UsageRecord) SetID(id uint) error {
	if r.id != 0 {
		return fmt.Errorf("usage record ID is already set")
	}
	r.id = id
	return nil
}

// Contribution is what this record adds under the given aggregation.
// A nil amount counts as one unit when summed.
func (r *UsageRecord) Contribution(a Aggregation) int64 {
	if a == AggregateCount || r.amount == nil {
		return 1
	}
	return *r.amount
}
