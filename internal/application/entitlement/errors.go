package entitlement

import (
	"errors"

	"github.com/lexora-inc/lexora/internal/domain/entitlement"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
)

// Denial codes rendered in the error meta of a 402 response.
const (
	CodeFeatureNotAvailable = "FEATURE_NOT_AVAILABLE"
	CodeLimitExceeded       = "LIMIT_EXCEEDED"
)

// AsPaymentRequired converts entitlement denials into 402 application
// errors carrying the upgrade hint. Other errors are returned unchanged.
func AsPaymentRequired(err error) error {
	var feature *entitlement.FeatureNotAvailableError
	if errors.As(err, &feature) {
		return apperrors.NewPaymentRequiredError(feature.Reason, map[string]any{
			"code":         CodeFeatureNotAvailable,
			"feature":      feature.Feature,
			"requiredPlan": feature.RequiredPlan,
		}, err)
	}

	var limit *entitlement.LimitExceededError
	if errors.As(err, &limit) {
		return apperrors.NewPaymentRequiredError(limit.Reason, map[string]any{
			"code":    CodeLimitExceeded,
			"limit":   limit.Limit,
			"current": limit.Current,
			"max":     limit.Max,
		}, err)
	}
	return err
}

// DeniedAction builds the denial error for a rejected CanPerformAction result.
func DeniedAction(result ActionResult) error {
	if result.Feature != nil && !result.Feature.Allowed {
		return AsPaymentRequired(&entitlement.FeatureNotAvailableError{
			Feature:      result.Feature.Key,
			RequiredPlan: result.Feature.RequiredPlan,
			Reason:       result.Feature.Reason,
		})
	}
	if result.Limit != nil && !result.Limit.Allowed {
		return AsPaymentRequired(&entitlement.LimitExceededError{
			Limit:   result.Limit.Key,
			Current: result.Limit.Current,
			Max:     result.Limit.Limit,
			Reason:  result.Limit.Reason,
		})
	}
	return nil
}
