package entitlement

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
)

func providerUpdate(tier plan.Tier) subscription.ProviderState {
	return subscription.ProviderState{Provider: vo.ProviderStripe, Plan: tier, Status: vo.StatusActive}
}

func TestParseOverrides(t *testing.T) {
	o, err := ParseOverrides(
		map[string]int64{"maxContracts": 1000, "aiTokens": plan.Unlimited},
		map[string]bool{"hasApiAccess": true},
	)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.Limits[plan.LimitDocuments])
	assert.Equal(t, plan.Unlimited, o.Limits[plan.LimitAiTokens])
	assert.True(t, o.Features[plan.FeatureApiAccess])

	_, err = ParseOverrides(map[string]int64{"pages": 3}, nil)
	assert.Error(t, err)

	_, err = ParseOverrides(nil, map[string]bool{"hasTeleport": true})
	assert.Error(t, err)

	_, err = ParseOverrides(map[string]int64{"documents": -2}, nil)
	assert.Error(t, err)
}

func TestGrantOverrides_InvalidatesCache(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(cache)
	cache.On("Invalidate", mock.Anything, "org_1").Return(nil).Once()

	view, err := f.svc.GrantOverrides(context.Background(), GrantOverridesCommand{
		OrganizationID: "org_1",
		Limits:         map[string]int64{"maxContracts": 1000},
		Features:       map[string]bool{"hasApiAccess": true},
		GrantedBy:      "support@lexora.app",
	})
	require.NoError(t, err)

	assert.Equal(t, plan.TierFree, view.Plan)
	assert.Equal(t, int64(1000), view.Limits.Documents)
	assert.True(t, view.Features.ApiAccess)
	assert.Equal(t, 1, f.subs.locks)
	cache.AssertExpectations(t)
}

func TestGrantOverrides_Rejects(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()

	_, err := f.svc.GrantOverrides(ctx, GrantOverridesCommand{OrganizationID: "org_1"})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.svc.GrantOverrides(ctx, GrantOverridesCommand{OrganizationID: "org_1", Limits: map[string]int64{"pages": 1}})
	assert.True(t, apperrors.IsValidationError(err))

	_, err = f.svc.GrantOverrides(ctx, GrantOverridesCommand{Limits: map[string]int64{"documents": 1}})
	assert.True(t, apperrors.IsValidationError(err))
}

func TestGrantOverrides_ClobberedByProviderState(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	sub := f.seed(t, "org_1", plan.TierPro, vo.StatusActive)

	_, err := f.svc.GrantOverrides(ctx, GrantOverridesCommand{
		OrganizationID: "org_1",
		Limits:         map[string]int64{"documents": 999},
	})
	require.NoError(t, err)

	require.NoError(t, sub.ApplyProviderState(providerUpdate(plan.TierPro)))

	view, err := f.svc.Resolve(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), view.Limits.Documents)
}

func TestGrantOverrides_CanceledRowConflicts(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	sub := f.seed(t, "org_1", plan.TierPro, vo.StatusActive)
	sub.Cancel(time.Now())

	_, err := f.svc.GrantOverrides(ctx, GrantOverridesCommand{
		OrganizationID: "org_1",
		Limits:         map[string]int64{"maxContracts": 1000},
		GrantedBy:      "support@lexora.app",
	})
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, http.StatusConflict, appErr.Code)

	view, err := f.svc.Resolve(ctx, "org_1")
	require.NoError(t, err)
	assert.Equal(t, plan.TierFree, view.Plan)
	assert.Equal(t, vo.StatusCanceled, view.Status)
	assert.Equal(t, int64(5), view.Limits.Documents)
}

func TestClearOverrides(t *testing.T) {
	cache := new(mockCache)
	f := newFixture(cache)
	ctx := context.Background()
	cache.On("Invalidate", mock.Anything, "org_1").Return(nil).Twice()

	_, err := f.svc.GrantOverrides(ctx, GrantOverridesCommand{
		OrganizationID: "org_1",
		Limits:         map[string]int64{"documents": 42},
	})
	require.NoError(t, err)

	view, err := f.svc.ClearOverrides(ctx, "org_1", "support@lexora.app")
	require.NoError(t, err)
	assert.Equal(t, int64(5), view.Limits.Documents)

	sub, err := f.subs.GetByOrganizationID(ctx, "org_1")
	require.NoError(t, err)
	assert.True(t, sub.Overrides().IsEmpty())
	cache.AssertExpectations(t)
}
