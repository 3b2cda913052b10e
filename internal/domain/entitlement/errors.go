package entitlement

import (
	"errors"
	"fmt"

	"github.com/lexora-inc/lexora/internal/domain/plan"
)

var (
	ErrFeatureNotAvailable = errors.New("FEATURE_NOT_AVAILABLE")
	ErrLimitExceeded       = errors.New("LIMIT_EXCEEDED")
)

// FeatureNotAvailableError is returned by feature guards.
type FeatureNotAvailableError struct {
	Feature      plan.FeatureKey
	RequiredPlan plan.Tier
	Reason       string
}

func (e *FeatureNotAvailableError) Error() string {
	return fmt.Sprintf("%s: %s requires %s", ErrFeatureNotAvailable, e.Feature, e.RequiredPlan)
}

func (e *FeatureNotAvailableError) Is(target error) bool {
	return target == ErrFeatureNotAvailable
}

// LimitExceededError is returned by quota guards.
type LimitExceededError struct {
	Limit   plan.LimitKey
	Current int64
	Max     int64
	Reason  string
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("%s: %s current=%d, max=%d", ErrLimitExceeded, e.Limit, e.Current, e.Max)
}

func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// IsDenial reports whether err is a user-correctable entitlement denial.
func IsDenial(err error) bool {
	return errors.Is(err, ErrFeatureNotAvailable) || errors.Is(err, ErrLimitExceeded)
}

// RequireFeature turns a denied check into a FeatureNotAvailableError.
func RequireFeature(v View, key plan.FeatureKey) error {
	res := CheckFeature(v, key)
	if res.Allowed {
		return nil
	}
	return &FeatureNotAvailableError{Feature: key, RequiredPlan: res.RequiredPlan, Reason: res.Reason}
}

// RequireLimit turns a denied check into a LimitExceededError.
func RequireLimit(v View, key plan.LimitKey, current int64) (LimitCheckResult, error) {
	return RequireConsumption(v, key, current, 1)
}

// RequireConsumption is RequireLimit for an action worth amount units.
func RequireConsumption(v View, key plan.LimitKey, current, amount int64) (LimitCheckResult, error) {
	res := CheckConsumption(v, key, current, amount)
	if res.Allowed {
		return res, nil
	}
	return res, &LimitExceededError{Limit: key, Current: current, Max: res.Limit, Reason: res.Reason}
}
