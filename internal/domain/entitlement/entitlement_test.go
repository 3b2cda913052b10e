package entitlement

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
)

func reconstruct(t require.TestingT, tier plan.Tier, status vo.SubscriptionStatus, o subscription.Overrides) *subscription.Subscription {
	now := time.Now().UTC()
	sub, err := subscription.ReconstructSubscription(1, "org_1", tier, status, nil, nil, nil, nil, false, nil,
		o, subscription.ProviderLinkage{}, 1, now, now)
	require.NoError(t, err)
	return sub
}

func TestResolve_NoSubscriptionIsFree(t *testing.T) {
	v := Resolve("org_1", nil)

	assert.Equal(t, plan.TierFree, v.Plan)
	assert.Equal(t, vo.StatusActive, v.Status)
	assert.False(t, v.HasSubscription)
	assert.Equal(t, int64(5), v.Limits.Documents)
	assert.Equal(t, int64(10), v.Limits.AiGenerations)
	assert.Empty(t, v.PaymentProvider)
}

func TestResolve_OverridePrecedence(t *testing.T) {
	sub := reconstruct(t, plan.TierFree, vo.StatusActive, subscription.Overrides{
		Limits: map[plan.LimitKey]int64{plan.LimitDocuments: 1000},
	})

	v := Resolve("org_1", sub)
	assert.Equal(t, int64(1000), v.Limits.Documents)
	assert.Equal(t, int64(10), v.Limits.AiGenerations, "keys without override use the plan default")
}

func TestResolve_FeatureOverrideCanRevoke(t *testing.T) {
	sub := reconstruct(t, plan.TierPro, vo.StatusActive, subscription.Overrides{
		Features: map[plan.FeatureKey]bool{plan.FeatureMatters: false, plan.FeatureApiAccess: true},
	})

	v := Resolve("org_1", sub)
	assert.False(t, v.Features.Matters)
	assert.True(t, v.Features.ApiAccess)
}

func TestResolve_ComplianceBasicAlwaysOn(t *testing.T) {
	tiers := append(plan.Tiers(), plan.TierStarter, plan.TierProfessional, plan.TierBusiness, plan.Tier("UNKNOWN"))
	statuses := make([]vo.SubscriptionStatus, 0, len(vo.ValidStatuses))
	for s := range vo.ValidStatuses {
		statuses = append(statuses, s)
	}

	rapid.Check(t, func(rt *rapid.T) {
		tier := rapid.SampledFrom(tiers).Draw(rt, "tier")
		status := rapid.SampledFrom(statuses).Draw(rt, "status")
		o := subscription.Overrides{}
		if rapid.Bool().Draw(rt, "revoke") {
			o.Features = map[plan.FeatureKey]bool{plan.FeatureComplianceBasic: false}
		}

		v := Resolve("org_1", reconstruct(rt, tier, status, o))
		if !v.Features.ComplianceBasic {
			rt.Fatalf("hasComplianceBasic false for %s/%s", tier, status)
		}
	})
	assert.True(t, Resolve("org_1", nil).Features.ComplianceBasic)
}

func TestResolve_StatusAccess(t *testing.T) {
	tests := []struct {
		status   vo.SubscriptionStatus
		wantPlan plan.Tier
	}{
		{vo.StatusActive, plan.TierMax},
		{vo.StatusTrialing, plan.TierMax},
		{vo.StatusPastDue, plan.TierMax},
		{vo.StatusCanceled, plan.TierFree},
		{vo.StatusUnpaid, plan.TierFree},
		{vo.StatusIncomplete, plan.TierFree},
		{vo.StatusIncompleteExpired, plan.TierFree},
		{vo.StatusPaused, plan.TierFree},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			v := Resolve("org_1", reconstruct(t, plan.TierMax, tt.status, subscription.SnapshotOverrides(plan.Get(plan.TierMax))))
			assert.Equal(t, tt.wantPlan, v.Plan)
			assert.Equal(t, tt.status, v.Status)
			assert.Equal(t, plan.Get(tt.wantPlan).Limits, v.Limits)
		})
	}
}

func TestResolve_LegacyTier(t *testing.T) {
	v := Resolve("org_1", reconstruct(t, plan.TierProfessional, vo.StatusActive, subscription.Overrides{}))
	assert.Equal(t, plan.TierPro, v.Plan)
	assert.Equal(t, int64(100), v.Limits.Documents)
}

func TestCheckLimit_UnlimitedProperty(t *testing.T) {
	v := Resolve("org_1", reconstruct(t, plan.TierEnterprise, vo.StatusActive, subscription.Overrides{}))
	rapid.Check(t, func(rt *rapid.T) {
		key := rapid.SampledFrom(plan.ListLimitKeys()).Draw(rt, "key")
		current := rapid.Int64Range(0, math.MaxInt64).Draw(rt, "current")

		res := CheckLimit(v, key, current)
		if !res.Allowed || !res.Unlimited || !math.IsInf(res.Remaining, 1) {
			rt.Fatalf("unlimited %s denied at %d: %+v", key, current, res)
		}
	})
}

func TestCheckLimit_BoundaryProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		key := rapid.SampledFrom(plan.ListLimitKeys()).Draw(rt, "key")
		n := rapid.Int64Range(0, 1_000_000).Draw(rt, "limit")
		v := Resolve("org_1", reconstruct(rt, plan.TierFree, vo.StatusActive, subscription.Overrides{
			Limits: map[plan.LimitKey]int64{key: n},
		}))

		at := CheckLimit(v, key, n)
		if at.Allowed || at.Remaining != 0 || at.Reason == "" {
			rt.Fatalf("usage %d of %d allowed: %+v", n, n, at)
		}
		if n >= 1 {
			below := CheckLimit(v, key, n-1)
			if !below.Allowed || below.Remaining != 1 {
				rt.Fatalf("usage %d of %d denied: %+v", n-1, n, below)
			}
		}
	})
}

func TestCheckConsumption_AmountProperty(t *testing.T) {
	v := Default("org_1")
	limit := v.Limits.AiTokens
	rapid.Check(t, func(rt *rapid.T) {
		current := rapid.Int64Range(0, limit).Draw(rt, "current")
		amount := rapid.Int64Range(1, 2*limit).Draw(rt, "amount")

		res := CheckConsumption(v, plan.LimitAiTokens, current, amount)
		if want := current+amount <= limit; res.Allowed != want {
			rt.Fatalf("%d+%d of %d: allowed=%v", current, amount, limit, res.Allowed)
		}
		if res.Current != current {
			rt.Fatalf("current reported as %d, want %d", res.Current, current)
		}
	})
}

func TestCheckLimit_Reason(t *testing.T) {
	res := CheckLimit(Default("org_1"), plan.LimitDocuments, 7)

	assert.False(t, res.Allowed)
	assert.Equal(t, float64(0), res.Remaining)
	assert.Equal(t, "You've reached your documents limit (5). Upgrade your plan for more.", res.Reason)
}

func TestLimitCheckResult_JSON(t *testing.T) {
	v := Resolve("org_1", reconstruct(t, plan.TierMax, vo.StatusActive, subscription.Overrides{}))

	raw, err := json.Marshal(CheckLimit(v, plan.LimitTemplates, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"templates","allowed":true,"current":3,"limit":-1,"remaining":null,"unlimited":true}`, string(raw))

	raw, err = json.Marshal(CheckLimit(v, plan.LimitDocuments, 3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"documents","allowed":true,"current":3,"limit":500,"remaining":497,"unlimited":false}`, string(raw))
}

func TestCheckFeature(t *testing.T) {
	free := Default("org_1")

	res := CheckFeature(free, plan.FeatureMatters)
	assert.False(t, res.Allowed)
	assert.Equal(t, plan.TierPro, res.RequiredPlan)
	assert.Contains(t, res.Reason, "Pro plan")

	assert.True(t, CheckFeature(free, plan.FeatureAiDrafting).Allowed)
	assert.True(t, CheckFeature(free, plan.FeatureComplianceBasic).Allowed)
	assert.False(t, CheckFeature(free, "hasTeleportation").Allowed)
}

func TestRequireGuards(t *testing.T) {
	free := Default("org_1")

	err := RequireFeature(free, plan.FeatureApiAccess)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFeatureNotAvailable)
	assert.NotErrorIs(t, err, ErrLimitExceeded)
	var featureErr *FeatureNotAvailableError
	require.True(t, errors.As(err, &featureErr))
	assert.Equal(t, plan.TierMax, featureErr.RequiredPlan)

	_, err = RequireLimit(free, plan.LimitDocuments, 5)
	assert.ErrorIs(t, err, ErrLimitExceeded)
	var limitErr *LimitExceededError
	require.True(t, errors.As(err, &limitErr))
	assert.Equal(t, int64(5), limitErr.Max)
	assert.Equal(t, int64(5), limitErr.Current)
	assert.True(t, IsDenial(fmt.Errorf("wrapped: %w", err)))

	res, err := RequireLimit(free, plan.LimitDocuments, 4)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.RemainingInt())
	assert.NoError(t, RequireFeature(free, plan.FeatureTemplatesMarketplace))
	assert.False(t, IsDenial(errors.New("connection reset")))
}

func TestScenario_UpgradeRaisesDocumentLimit(t *testing.T) {
	v := Resolve("org_1", nil)
	assert.Equal(t, int64(5), v.Limits.Documents)
	assert.Equal(t, int64(10), v.Limits.AiGenerations)

	res := CheckLimit(v, plan.LimitDocuments, 5)
	assert.False(t, res.Allowed)
	assert.Equal(t, int64(5), res.Limit)
	assert.Equal(t, int64(5), res.Current)
	assert.Equal(t, float64(0), res.Remaining)

	sub, err := subscription.NewSubscription("org_1")
	require.NoError(t, err)
	require.NoError(t, sub.ApplyProviderState(subscription.ProviderState{
		Provider: vo.ProviderStripe,
		Plan:     plan.TierPro,
		Status:   vo.StatusActive,
	}))

	v = Resolve("org_1", sub)
	assert.Equal(t, int64(100), v.Limits.Documents)
	res = CheckLimit(v, plan.LimitDocuments, 5)
	assert.True(t, res.Allowed)
	assert.Equal(t, float64(95), res.Remaining)
}
