package entitlement

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
)

// GrantOverridesCommand carries manual grants. Limit keys may be given as
// limit names ("documents") or column names ("maxContracts").
type GrantOverridesCommand struct {
	OrganizationID string
	Limits         map[string]int64
	Features       map[string]bool
	GrantedBy      string
}

// ParseOverrides converts loosely keyed grants into typed overrides.
func ParseOverrides(limits map[string]int64, features map[string]bool) (subscription.Overrides, error) {
	o := subscription.Overrides{
		Limits:   make(map[plan.LimitKey]int64, len(limits)),
		Features: make(map[plan.FeatureKey]bool, len(features)),
	}
	for name, v := range limits {
		key, ok := plan.ParseLimitKey(name)
		if !ok {
			key, ok = plan.LimitKeyForOverride(name)
		}
		if !ok {
			return subscription.Overrides{}, subscription.ErrUnknownLimit(name)
		}
		o.Limits[key] = v
	}
	for name, v := range features {
		key, ok := plan.ParseFeatureKey(name)
		if !ok {
			return subscription.Overrides{}, subscription.ErrUnknownFeature(name)
		}
		o.Features[key] = v
	}
	return o, o.Validate()
}

// GrantOverrides lays manual grants over the organization's current values.
// The next provider webhook replaces them with the plan defaults. Grants on
// a row whose status does not grant access are a conflict.
func (s *Service) GrantOverrides(ctx context.Context, cmd GrantOverridesCommand) (entitlement.View, error) {
	if cmd.OrganizationID == "" {
		return entitlement.View{}, apperrors.NewValidationError("organization ID is required")
	}
	overrides, err := ParseOverrides(cmd.Limits, cmd.Features)
	if err != nil {
		return entitlement.View{}, apperrors.NewValidationError("invalid override", err.Error())
	}
	if overrides.IsEmpty() {
		return entitlement.View{}, apperrors.NewValidationError("at least one override is required")
	}

	view, err := s.mutate(ctx, cmd.OrganizationID, func(sub *subscription.Subscription) error {
		return sub.GrantOverrides(overrides)
	})
	if err != nil {
		return entitlement.View{}, err
	}

	s.logger.Infow("entitlement overrides granted",
		"organization_id", cmd.OrganizationID,
		"granted_by", cmd.GrantedBy,
		"limits", len(overrides.Limits),
		"features", len(overrides.Features),
	)
	return view, nil
}

// ClearOverrides drops every override so plan defaults apply again.
func (s *Service) ClearOverrides(ctx context.Context, organizationID, clearedBy string) (entitlement.View, error) {
	if organizationID == "" {
		return entitlement.View{}, apperrors.NewValidationError("organization ID is required")
	}
	view, err := s.mutate(ctx, organizationID, func(sub *subscription.Subscription) error {
		sub.ClearOverrides()
		return nil
	})
	if err != nil {
		return entitlement.View{}, err
	}
	s.logger.Infow("entitlement overrides cleared",
		"organization_id", organizationID,
		"cleared_by", clearedBy,
	)
	return view, nil
}

// mutate locks the organization's row, applies fn and persists the result.
func (s *Service) mutate(ctx context.Context, organizationID string, fn func(sub *subscription.Subscription) error) (entitlement.View, error) {
	var view entitlement.View
	err := s.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := s.subscriptionRepo.LockByOrganizationID(txCtx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if err := fn(sub); err != nil {
			if errors.Is(err, subscription.ErrOverrideWithoutAccess) {
				return apperrors.NewConflictError("overrides cannot be granted while the subscription is inactive", err.Error())
			}
			return apperrors.NewValidationError("invalid override", err.Error())
		}
		if err := s.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		view = s.resolveRow(organizationID, sub)
		return nil
	})
	if err != nil {
		if errors.Is(err, subscription.ErrVersionConflict) {
			return entitlement.View{}, apperrors.NewConflictError("subscription was modified concurrently, retry")
		}
		s.logger.Errorw("failed to update entitlement overrides", "organization_id", organizationID, "error", err)
		return entitlement.View{}, wrapRepoErr("update overrides", err)
	}

	s.invalidate(ctx, organizationID)
	return view, nil
}
