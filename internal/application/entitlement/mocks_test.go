package entitlement

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
)

// memSubscriptionRepo keeps aggregates by organization.
type memSubscriptionRepo struct {
	mu     sync.Mutex
	rows   map[string]*subscription.Subscription
	nextID uint
	err    error
	locks  int
}

func newMemSubscriptionRepo() *memSubscriptionRepo {
	return &memSubscriptionRepo{rows: map[string]*subscription.Subscription{}}
}

func (r *memSubscriptionRepo) put(sub *subscription.Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub.ID() == 0 {
		r.nextID++
		_ = sub.SetID(r.nextID)
	}
	r.rows[sub.OrganizationID()] = sub
}

func (r *memSubscriptionRepo) GetByID(_ context.Context, id uint) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	for _, s := range r.rows {
		if s.ID() == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSubscriptionRepo) GetByOrganizationID(_ context.Context, organizationID string) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return r.rows[organizationID], nil
}

func (r *memSubscriptionRepo) GetOrCreate(ctx context.Context, organizationID string) (*subscription.Subscription, error) {
	sub, err := r.GetByOrganizationID(ctx, organizationID)
	if err != nil || sub != nil {
		return sub, err
	}
	sub, err = subscription.NewSubscription(organizationID)
	if err != nil {
		return nil, err
	}
	r.put(sub)
	return sub, nil
}

func (r *memSubscriptionRepo) LockByOrganizationID(ctx context.Context, organizationID string) (*subscription.Subscription, error) {
	r.mu.Lock()
	r.locks++
	r.mu.Unlock()
	return r.GetOrCreate(ctx, organizationID)
}

func (r *memSubscriptionRepo) GetByProviderSubscriptionID(_ context.Context, provider vo.PaymentProvider, id string) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Provider().SubscriptionID(provider) == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSubscriptionRepo) GetByProviderCustomerID(_ context.Context, provider vo.PaymentProvider, id string) (*subscription.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.rows {
		if s.Provider().CustomerID(provider) == id {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSubscriptionRepo) Update(_ context.Context, sub *subscription.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.rows[sub.OrganizationID()] = sub
	sub.IncrementVersion()
	return nil
}

// memUsageRepo is an append-only slice of records.
type memUsageRepo struct {
	mu      sync.Mutex
	records []*subscription.UsageRecord
	err     error
}

func (r *memUsageRepo) Create(_ context.Context, record *subscription.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	_ = record.SetID(uint(len(r.records) + 1))
	r.records = append(r.records, record)
	return nil
}

func (r *memUsageRepo) Aggregate(_ context.Context, subscriptionID uint, usageType subscription.UsageType, agg subscription.Aggregation, period biztime.Period) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return 0, r.err
	}
	var total int64
	for _, rec := range r.records {
		if rec.SubscriptionID() == subscriptionID && rec.Type() == usageType && period.Contains(rec.CreatedAt()) {
			total += rec.Contribution(agg)
		}
	}
	return total, nil
}

func (r *memUsageRepo) Totals(_ context.Context, subscriptionID uint, period biztime.Period) (map[subscription.UsageType]subscription.UsageTotal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[subscription.UsageType]subscription.UsageTotal{}
	for _, rec := range r.records {
		if rec.SubscriptionID() != subscriptionID || !period.Contains(rec.CreatedAt()) {
			continue
		}
		t := out[rec.Type()]
		t.Type = rec.Type()
		t.Count++
		t.Amount += rec.Contribution(subscription.AggregateSum)
		out[rec.Type()] = t
	}
	return out, nil
}

func (r *memUsageRepo) ListInPeriod(_ context.Context, subscriptionID uint, period biztime.Period, limit int) ([]*subscription.UsageRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*subscription.UsageRecord
	for _, rec := range r.records {
		if rec.SubscriptionID() == subscriptionID && period.Contains(rec.CreatedAt()) {
			out = append(out, rec)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// serialTx serialises units of work the way a row lock would.
type serialTx struct {
	mu sync.Mutex
}

func (t *serialTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, organizationID string) (*entitlement.View, error) {
	args := m.Called(ctx, organizationID)
	v, _ := args.Get(0).(*entitlement.View)
	return v, args.Error(1)
}

func (m *mockCache) Set(ctx context.Context, view *entitlement.View) error {
	return m.Called(ctx, view).Error(0)
}

func (m *mockCache) Invalidate(ctx context.Context, organizationIDs ...string) error {
	args := make([]any, 0, len(organizationIDs)+1)
	args = append(args, ctx)
	for _, id := range organizationIDs {
		args = append(args, id)
	}
	return m.Called(args...).Error(0)
}

// missCache never hits and accepts every write.
type missCache struct{}

func (missCache) Get(context.Context, string) (*entitlement.View, error) { return nil, nil }
func (missCache) Set(context.Context, *entitlement.View) error { return nil }
func (missCache) Invalidate(context.Context, ...string) error { return nil }
