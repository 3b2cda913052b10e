package entitlement

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	subs  *memSubscriptionRepo
	usage *memUsageRepo
	svc   *Service
}

func newFixture(cache EntitlementCache) *fixture {
	if cache == nil {
		cache = missCache{}
	}
	f := &fixture{subs: newMemSubscriptionRepo(), usage: &memUsageRepo{}}
	f.svc = NewService(f.subs, f.usage, &serialTx{}, cache, logger.NewNop())
	f.svc.SetClock(func() time.Time { return fixedNow })
	return f
}

func (f *fixture) seed(t *testing.T, orgID string, tier plan.Tier, status vo.SubscriptionStatus) *subscription.Subscription {
	t.Helper()
	sub, err := subscription.NewSubscription(orgID)
	require.NoError(t, err)
	require.NoError(t, sub.ApplyProviderState(subscription.ProviderState{
		Provider: vo.ProviderStripe,
		Plan:     tier,
		Status:   status,
	}))
	f.subs.put(sub)
	return sub
}

func TestResolve_NoRowIsFree(t *testing.T) {
	f := newFixture(nil)

	view, err := f.svc.Resolve(context.Background(), "org_1")
	require.NoError(t, err)

	assert.Equal(t, plan.TierFree, view.Plan)
	assert.Equal(t, vo.StatusActive, view.Status)
	assert.False(t, view.HasSubscription)
	assert.Equal(t, int64(5), view.Limits.Documents)
	assert.Equal(t, int64(10), view.Limits.AiGenerations)
	assert.True(t, view.Features.ComplianceBasic)
	assert.Empty(t, view.PaymentProvider)
}

func TestResolve_RequiresOrganization(t *testing.T) {
	f := newFixture(nil)
	_, err := f.svc.Resolve(context.Background(), "")
	assert.True(t, apperrors.IsValidationError(err))
}

func TestResolve_StoreFailureIsTransient(t *testing.T) {
	f := newFixture(nil)
	cause := errors.New("connection reset")
	f.subs.err = cause

	_, err := f.svc.Resolve(context.Background(), "org_1")
	require.Error(t, err)

	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrorTypeUnavailable, appErr.Type)
	assert.ErrorIs(t, err, cause)
	assert.False(t, entitlement.IsDenial(err), "a storage failure must not read as a denial")
}

func TestResolve_OverridePrecedence(t *testing.T) {
	f := newFixture(nil)
	sub := f.seed(t, "org_1", plan.TierFree, vo.StatusActive)
	require.NoError(t, sub.GrantOverrides(subscription.Overrides{
		Limits: map[plan.LimitKey]int64{plan.LimitDocuments: 1000},
	}))

	view, err := f.svc.Resolve(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), view.Limits.Documents)
	assert.Equal(t, int64(10), view.Limits.AiGenerations)
}

func TestResolve_UsesCache(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(cache)
	cached := entitlement.Default("org_1")
	cached.Plan = plan.TierMax
	cache.On("Get", mock.Anything, "org_1").Return(&cached, nil)
	f.subs.err = errors.New("must not be called")

	view, err := f.svc.Resolve(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, plan.TierMax, view.Plan)
	cache.AssertExpectations(t)
}

func TestResolve_CacheFailureFallsBackToStore(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(cache)
	f.seed(t, "org_1", plan.TierPro, vo.StatusActive)
	cache.On("Get", mock.Anything, "org_1").Return(nil, errors.New("redis down"))
	cache.On("Set", mock.Anything, mock.AnythingOfType("*entitlement.View")).Return(errors.New("redis down"))

	view, err := f.svc.Resolve(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, plan.TierPro, view.Plan)
	cache.AssertExpectations(t)
}

func TestCheckLimit_Boundary(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	res, err := f.svc.CheckLimit(ctx, "org_1", plan.LimitDocuments, 5)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(5), res.Limit)
	assert.Equal(t, int64(5), res.Current)
	assert.Equal(t, float64(0), res.Remaining)
	assert.Contains(t, res.Reason, "documents limit (5)")

	res, err = f.svc.CheckLimit(ctx, "org_1", plan.LimitDocuments, 4)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, float64(1), res.Remaining)
}

func TestCheckLimit_Unlimited(t *testing.T) {
	f := newFixture(nil)
	f.seed(t, "org_1", plan.TierEnterprise, vo.StatusActive)

	for _, current := range []int64{0, 1, math.MaxInt64} {
		res, err := f.svc.CheckLimit(context.Background(), "org_1", plan.LimitDocuments, current)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.True(t, res.Unlimited)
		assert.True(t, math.IsInf(res.Remaining, 1))
	}
}

func TestCheckLimit_RejectsBadInput(t *testing.T) {
	f := newFixture(nil)
	_, err := f.svc.CheckLimit(context.Background(), "org_1", plan.LimitKey("pages"), 1)
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.svc.CheckLimit(context.Background(), "org_1", plan.LimitDocuments, -1)
	assert.True(t, apperrors.IsValidationError(err))
}

func TestCanUseFeature(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	res, err := f.svc.CanUseFeature(ctx, "org_1", plan.FeatureApiAccess)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, plan.TierMax, res.RequiredPlan)
	assert.NotEmpty(t, res.Reason)

	res, err = f.svc.CanUseFeature(ctx, "org_1", plan.FeatureAiDrafting)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Empty(t, res.RequiredPlan)
}

func TestRequireFeature(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	err := f.svc.RequireFeature(ctx, "org_1", plan.FeatureMatters)
	require.Error(t, err)
	assert.ErrorIs(t, err, entitlement.ErrFeatureNotAvailable)

	var denial *entitlement.FeatureNotAvailableError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, plan.TierPro, denial.RequiredPlan)

	f.seed(t, "org_2", plan.TierPro, vo.StatusActive)
	assert.NoError(t, f.svc.RequireFeature(ctx, "org_2", plan.FeatureMatters))
}

func TestRequireLimit(t *testing.T) {
	f := newFixture(nil)

	_, err := f.svc.RequireLimit(context.Background(), "org_1", plan.LimitTeamMembers, 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, entitlement.ErrLimitExceeded)

	var denial *entitlement.LimitExceededError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, int64(1), denial.Max)
	assert.Equal(t, int64(1), denial.Current)
}

func TestStatusAccess(t *testing.T) {
	tests := []struct {
		status   vo.SubscriptionStatus
		wantPlan plan.Tier
	}{
		{vo.StatusActive, plan.TierPro},
		{vo.StatusTrialing, plan.TierPro},
		{vo.StatusPastDue, plan.TierPro},
		{vo.StatusCanceled, plan.TierFree},
		{vo.StatusUnpaid, plan.TierFree},
		{vo.StatusIncomplete, plan.TierFree},
		{vo.StatusIncompleteExpired, plan.TierFree},
		{vo.StatusPaused, plan.TierFree},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(nil)
			f.seed(t, "org_1", plan.TierPro, tt.status)

			res, err := f.svc.CanPerformAction(context.Background(), Action{
				OrganizationID: "org_1",
				Feature:        plan.FeatureMatters,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan == plan.TierPro, res.Allowed)

			view, err := f.svc.Resolve(context.Background(), "org_1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantPlan, view.Plan)
			assert.Equal(t, tt.status, view.Status)
		})
	}
}

func TestCanPerformAction_UsesMeteredUsage(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.svc.RecordUsage(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageDocumentGenerated})
		require.NoError(t, err)
	}

	res, err := f.svc.CanPerformAction(ctx, Action{OrganizationID: "org_1", Limit: plan.LimitDocuments})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	require.NotNil(t, res.Limit)
	assert.Equal(t, int64(5), res.Limit.Current)

	current := int64(2)
	res, err = f.svc.CanPerformAction(ctx, Action{OrganizationID: "org_1", Limit: plan.LimitDocuments, Current: &current})
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestCanPerformAction_FeatureShortCircuits(t *testing.T) {
	f := newFixture(nil)
	res, err := f.svc.CanPerformAction(context.Background(), Action{
		OrganizationID: "org_1",
		Feature:        plan.FeatureSso,
		Limit:          plan.LimitDocuments,
	})
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.NotNil(t, res.Feature)
	assert.Nil(t, res.Limit)
}

func TestCurrentUsage(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	amount := int64(1500)
	_, err := f.svc.RecordUsage(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageAiTokenUsage, Amount: &amount})
	require.NoError(t, err)
	_, err = f.svc.RecordUsage(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageAiTokenUsage, Amount: &amount})
	require.NoError(t, err)

	generations, err := f.svc.CurrentUsage(ctx, "org_1", plan.LimitAiGenerations)
	require.NoError(t, err)
	assert.Equal(t, int64(2), generations)

	tokens, err := f.svc.CurrentUsage(ctx, "org_1", plan.LimitAiTokens)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), tokens)

	_, err = f.svc.CurrentUsage(ctx, "org_1", plan.LimitTeamMembers)
	assert.True(t, apperrors.IsValidationError(err))

	none, err := f.svc.CurrentUsage(ctx, "org_unknown", plan.LimitDocuments)
	require.NoError(t, err)
	assert.Zero(t, none)
}

func TestRecordUsage_StampsBillingPeriod(t *testing.T) {
	f := newFixture(nil)
	rec, err := f.svc.RecordUsage(context.Background(), RecordUsageCommand{
		OrganizationID: "org_1",
		Type:           subscription.UsageDocumentGenerated,
		ResourceType:   "contract",
		ResourceID:     "ctr_42",
		Metadata:       map[string]any{"template": "nda"},
	})
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), rec.PeriodStart())
	assert.Equal(t, "ctr_42", rec.ResourceID())
	assert.Equal(t, "nda", rec.Metadata()["template"])
	assert.NotEmpty(t, rec.PublicID())
}

func TestRecordUsage_RejectsInvalidRecord(t *testing.T) {
	f := newFixture(nil)
	negative := int64(-3)

	_, err := f.svc.RecordUsage(context.Background(), RecordUsageCommand{OrganizationID: "org_1", Type: "PAGE_VIEW"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.svc.RecordUsage(context.Background(), RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageAiTokenUsage, Amount: &negative})
	assert.True(t, apperrors.IsValidationError(err))
	assert.Empty(t, f.usage.records)
}

func TestUsageSummary(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.RecordUsage(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageDocumentGenerated})
		require.NoError(t, err)
	}

	summary, err := f.svc.UsageSummary(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, plan.TierFree, summary.Plan)
	assert.Equal(t, int64(3), summary.Totals[subscription.UsageDocumentGenerated])
	require.Len(t, summary.Limits, len(subscription.Meters()))

	for _, l := range summary.Limits {
		if l.Key == plan.LimitDocuments {
			assert.Equal(t, int64(3), l.Current)
			assert.Equal(t, float64(2), l.Remaining)
		}
	}
}

func TestConsume_DeniesAtLimit(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := f.svc.Consume(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageComplianceCheck})
		require.NoError(t, err, "consume %d", i)
		require.Len(t, res.Checks, 1)
		assert.Equal(t, int64(i), res.Checks[0].Current)
	}

	_, err := f.svc.Consume(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageComplianceCheck})
	require.Error(t, err)
	assert.ErrorIs(t, err, entitlement.ErrLimitExceeded)
	assert.Len(t, f.usage.records, 5)
}

func TestConsume_SummedMeterCountsRequestedAmount(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	tokens := func(n int64) RecordUsageCommand {
		return RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageAiTokenUsage, Amount: &n}
	}

	_, err := f.svc.Consume(ctx, tokens(9_999))
	require.NoError(t, err)

	_, err = f.svc.Consume(ctx, tokens(10_000))
	require.Error(t, err)
	var denial *entitlement.LimitExceededError
	require.ErrorAs(t, err, &denial)
	assert.Equal(t, plan.LimitAiTokens, denial.Limit)
	assert.Equal(t, int64(9_999), denial.Current)
	assert.Equal(t, int64(10_000), denial.Max)

	_, err = f.svc.Consume(ctx, tokens(1))
	require.NoError(t, err, "the last token fits exactly")

	_, err = f.svc.Consume(ctx, tokens(1))
	assert.ErrorIs(t, err, entitlement.ErrLimitExceeded)
	assert.Len(t, f.usage.records, 2)
}

func TestConsume_ConcurrentCallersAdmitExactlyLimit(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Consume(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageDocumentGenerated})
			if err == nil {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, allowed)
	assert.Len(t, f.usage.records, 5)
}

func TestConsume_UnmeteredTypeRecordsWithoutChecks(t *testing.T) {
	f := newFixture(nil)
	res, err := f.svc.Consume(context.Background(), RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageStorageUsed})
	require.NoError(t, err)
	assert.Empty(t, res.Checks)
	assert.NotNil(t, res.Record)
}

func TestConsume_StoreFailure(t *testing.T) {
	f := newFixture(nil)
	f.usage.err = errors.New("disk full")

	_, err := f.svc.Consume(context.Background(), RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageDocumentGenerated})
	require.Error(t, err)
	assert.False(t, entitlement.IsDenial(err))
	assert.Equal(t, apperrors.ErrorTypeUnavailable, apperrors.GetAppError(err).Type)
}

func TestUsageHistory(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	empty, err := f.svc.UsageHistory(ctx, "org_none", 10)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for i := 0; i < 3; i++ {
		_, err := f.svc.RecordUsage(ctx, RecordUsageCommand{OrganizationID: "org_1", Type: subscription.UsageComplianceCheck})
		require.NoError(t, err)
	}

	records, err := f.svc.UsageHistory(ctx, "org_1", 2)
	require.NoError(t, err)
	assert.Len(t, records, 2)

	_, err = f.svc.UsageHistory(ctx, "", 10)
	assert.True(t, apperrors.IsValidationError(err))
}
