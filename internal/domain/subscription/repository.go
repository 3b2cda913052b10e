package subscription

import (
	"context"

	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
)

// Repository persists Subscription aggregates. Lookups return (nil, nil)
// when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id uint) (*Subscription, error)
	GetByOrganizationID(ctx context.Context, organizationID string) (*Subscription, error)
	// GetOrCreate returns the organization's row, inserting the FREE default
	// if none exists. Concurrent callers converge on a single row.
	GetOrCreate(ctx context.Context, organizationID string) (*Subscription, error)
	// LockByOrganizationID is GetOrCreate followed by a row lock held until
	// the surrounding transaction ends.
	LockByOrganizationID(ctx context.Context, organizationID string) (*Subscription, error)
	GetByProviderSubscriptionID(ctx context.Context, provider vo.PaymentProvider, subscriptionID string) (*Subscription, error)
	GetByProviderCustomerID(ctx context.Context, provider vo.PaymentProvider, customerID string) (*Subscription, error)
	Update(ctx context.Context, sub *Subscription) error
}

// UsageTotal is the folded usage of one type within a period.
type UsageTotal struct {
	Type   UsageType
	Count  int64
	Amount int64
}

// UsageRepository stores append-only usage records.
type UsageRepository interface {
	Create(ctx context.Context, record *UsageRecord) error
	// Aggregate folds records of usageType whose createdAt lies in period.
	Aggregate(ctx context.Context, subscriptionID uint, usageType UsageType, agg Aggregation, period biztime.Period) (int64, error)
	Totals(ctx context.Context, subscriptionID uint, period biztime.Period) (map[UsageType]UsageTotal, error)
	ListInPeriod(ctx context.Context, subscriptionID uint, period biztime.Period, limit int) ([]*UsageRecord, error)
}

// BillingEventRepository logs verified webhook deliveries.
type BillingEventRepository interface {
	// Exists reports whether the provider event was recorded before.
	Exists(ctx context.Context, provider vo.PaymentProvider, eventID string) (bool, error)
	// Record stores the delivery and reports false when the same provider
	// event was recorded before.
	Record(ctx context.Context, provider vo.PaymentProvider, eventID, eventType, organizationID string, payload []byte) (bool, error)
}
