// Package entitlement answers what an organization may do right now and
// records the usage that counts against its quotas.
package entitlement

import (
	"context"
	"fmt"
	"time"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	"github.com/lexora-inc/lexora/internal/shared/biztime"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

// Service is the entitlement resolver and usage gate.
type Service struct {
	subscriptionRepo subscription.Repository
	usageRepo        subscription.UsageRepository
	txManager        TransactionRunner
	cache            EntitlementCache
	logger           logger.Interface
	now              func() time.Time
}

func NewService(
	subscriptionRepo subscription.Repository,
	usageRepo subscription.UsageRepository,
	txManager TransactionRunner,
	cache EntitlementCache,
	logger logger.Interface,
) *Service {
	return &Service{
		subscriptionRepo: subscriptionRepo,
		usageRepo:        usageRepo,
		txManager:        txManager,
		cache:            cache,
		logger:           logger,
		now:              biztime.NowUTC,
	}
}

// SetClock replaces the time source; tests only.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Resolve returns the effective entitlement of organizationID. A missing
// subscription row is not an error. Persistence failures come back as an
// unavailable error so callers retry instead of denying.
func (s *Service) Resolve(ctx context.Context, organizationID string) (entitlement.View, error) {
	if organizationID == "" {
		return entitlement.View{}, apperrors.NewValidationError("organization ID is required")
	}

	if cached, err := s.cache.Get(ctx, organizationID); err != nil {
		s.logger.Warnw("entitlement cache read failed", "organization_id", organizationID, "error", err)
	} else if cached != nil {
		return *cached, nil
	}

	sub, err := s.subscriptionRepo.GetByOrganizationID(ctx, organizationID)
	if err != nil {
		s.logger.Errorw("failed to load subscription", "organization_id", organizationID, "error", err)
		return entitlement.View{}, apperrors.NewUnavailableError("entitlements are temporarily unavailable", err)
	}

	view := s.resolveRow(organizationID, sub)

	if err := s.cache.Set(ctx, &view); err != nil {
		s.logger.Warnw("entitlement cache write failed", "organization_id", organizationID, "error", err)
	}
	return view, nil
}

func (s *Service) resolveRow(organizationID string, sub *subscription.Subscription) entitlement.View {
	if sub != nil && !sub.Plan().IsValid() && !sub.Plan().IsLegacy() {
		s.logger.Warnw("subscription carries unknown plan, resolving as FREE",
			"organization_id", organizationID,
			"plan", sub.Plan(),
		)
	}
	return entitlement.Resolve(organizationID, sub)
}

// CanUseFeature reports whether the feature is enabled and, if not, the
// cheapest tier that would unlock it.
func (s *Service) CanUseFeature(ctx context.Context, organizationID string, key plan.FeatureKey) (entitlement.FeatureCheckResult, error) {
	if !key.IsValid() {
		return entitlement.FeatureCheckResult{}, apperrors.NewValidationError("unknown feature", string(key))
	}
	view, err := s.Resolve(ctx, organizationID)
	if err != nil {
		return entitlement.FeatureCheckResult{}, err
	}
	return entitlement.CheckFeature(view, key), nil
}

// CheckLimit evaluates currentUsage against the resolved limit for key.
func (s *Service) CheckLimit(ctx context.Context, organizationID string, key plan.LimitKey, currentUsage int64) (entitlement.LimitCheckResult, error) {
	if !key.IsValid() {
		return entitlement.LimitCheckResult{}, apperrors.NewValidationError("unknown limit", string(key))
	}
	if currentUsage < 0 {
		return entitlement.LimitCheckResult{}, apperrors.NewValidationError("current usage must not be negative")
	}
	view, err := s.Resolve(ctx, organizationID)
	if err != nil {
		return entitlement.LimitCheckResult{}, err
	}
	return entitlement.CheckLimit(view, key, currentUsage), nil
}

// RequireFeature returns an *entitlement.FeatureNotAvailableError when the
// feature is off.
func (s *Service) RequireFeature(ctx context.Context, organizationID string, key plan.FeatureKey) error {
	if !key.IsValid() {
		return apperrors.NewValidationError("unknown feature", string(key))
	}
	view, err := s.Resolve(ctx, organizationID)
	if err != nil {
		return err
	}
	return entitlement.RequireFeature(view, key)
}

// RequireLimit returns an *entitlement.LimitExceededError when currentUsage
// has reached the limit.
func (s *Service) RequireLimit(ctx context.Context, organizationID string, key plan.LimitKey, currentUsage int64) (entitlement.LimitCheckResult, error) {
	if !key.IsValid() {
		return entitlement.LimitCheckResult{}, apperrors.NewValidationError("unknown limit", string(key))
	}
	view, err := s.Resolve(ctx, organizationID)
	if err != nil {
		return entitlement.LimitCheckResult{}, err
	}
	return entitlement.RequireLimit(view, key, currentUsage)
}

// Action describes a gated operation. Feature and Limit are both optional.
// For a metered limit Current may be left nil and the period usage is used.
type Action struct {
	OrganizationID string
	Feature        plan.FeatureKey
	Limit          plan.LimitKey
	Current        *int64
}

// ActionResult combines the feature and limit verdicts of an Action.
type ActionResult struct {
	Allowed bool                            `json:"allowed"`
	Reason  string                          `json:"reason,omitempty"`
	Feature *entitlement.FeatureCheckResult `json:"feature,omitempty"`
	Limit   *entitlement.LimitCheckResult   `json:"limit,omitempty"`
}

// CanPerformAction checks the feature first and the quota second. PAST_DUE
// subscriptions keep their plan during the grace period.
func (s *Service) CanPerformAction(ctx context.Context, action Action) (ActionResult, error) {
	if action.Feature != "" && !action.Feature.IsValid() {
		return ActionResult{}, apperrors.NewValidationError("unknown feature", string(action.Feature))
	}
	if action.Limit != "" && !action.Limit.IsValid() {
		return ActionResult{}, apperrors.NewValidationError("unknown limit", string(action.Limit))
	}

	view, err := s.Resolve(ctx, action.OrganizationID)
	if err != nil {
		return ActionResult{}, err
	}

	result := ActionResult{Allowed: true}
	if action.Feature != "" {
		fr := entitlement.CheckFeature(view, action.Feature)
		result.Feature = &fr
		if !fr.Allowed {
			result.Allowed = false
			result.Reason = fr.Reason
			return result, nil
		}
	}

	if action.Limit != "" {
		var current int64
		if action.Current != nil {
			current = *action.Current
		} else {
			current, err = s.CurrentUsage(ctx, action.OrganizationID, action.Limit)
			if err != nil {
				return ActionResult{}, err
			}
		}
		lr := entitlement.CheckLimit(view, action.Limit, current)
		result.Limit = &lr
		if !lr.Allowed {
			result.Allowed = false
			result.Reason = lr.Reason
		}
	}
	return result, nil
}

func (s *Service) invalidate(ctx context.Context, organizationID string) {
	if err := s.cache.Invalidate(ctx, organizationID); err != nil {
		s.logger.Warnw("failed to invalidate entitlement cache", "organization_id", organizationID, "error", err)
	}
}

// Invalidate drops the cached view after an out-of-band write.
func (s *Service) Invalidate(ctx context.Context, organizationID string) {
	s.invalidate(ctx, organizationID)
}

func wrapRepoErr(action string, err error) error {
	if apperrors.IsAppError(err) || entitlement.IsDenial(err) {
		return err
	}
	return apperrors.NewUnavailableError(fmt.Sprintf("failed to %s", action), err)
}
