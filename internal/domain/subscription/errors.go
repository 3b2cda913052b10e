package subscription

import (
	"errors"
	"fmt"
)

var (
	ErrSubscriptionNotFound   = errors.New("subscription not found")
	ErrOrganizationIDRequired = errors.New("organization ID is required")
	ErrInvalidStatus          = errors.New("invalid subscription status")
	ErrInvalidProvider        = errors.New("invalid payment provider")
	ErrInvalidOverride        = errors.New("invalid entitlement override")
	ErrInvalidUsageType       = errors.New("invalid usage type")
	ErrInvalidUsageAmount     = errors.New("invalid usage amount")
	ErrUsageOutsidePeriod     = errors.New("usage record outside its billing period")
	ErrVersionConflict        = errors.New("subscription was modified concurrently")
	ErrOverrideWithoutAccess  = errors.New("subscription status does not grant access")
)

func ErrUnknownLimit(key string) error {
	return fmt.Errorf("%w: unknown limit %q", ErrInvalidOverride, key)
}

func ErrUnknownFeature(key string) error {
	return fmt.Errorf("%w: unknown feature %q", ErrInvalidOverride, key)
}

func ErrInvalidOverrideValue(key string, value int64) error {
	return fmt.Errorf("%w: %s=%d", ErrInvalidOverride, key, value)
}
