package entitlement

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/lexora-inc/lexora/internal/domain/plan"
)

// LimitCheckResult is the outcome of one quota check. Remaining is +Inf
// when the limit is unlimited.
type LimitCheckResult struct {
	Key       plan.LimitKey
	Allowed   bool
	Current   int64
	Limit     int64
	Remaining float64
	Unlimited bool
	Reason    string
}

// RemainingInt returns Remaining as an integer; -1 stands for unlimited.
func (r LimitCheckResult) RemainingInt() int64 {
	if r.Unlimited {
		return plan.Unlimited
	}
	return int64(r.Remaining)
}

// MarshalJSON renders an unlimited remainder as null since JSON has no infinity.
func (r LimitCheckResult) MarshalJSON() ([]byte, error) {
	var remaining *int64
	if !r.Unlimited {
		v := int64(r.Remaining)
		remaining = &v
	}
	return json.Marshal(struct {
		Key       plan.LimitKey `json:"key"`
		Allowed   bool          `json:"allowed"`
		Current   int64         `json:"current"`
		Limit     int64         `json:"limit"`
		Remaining *int64        `json:"remaining"`
		Unlimited bool          `json:"unlimited"`
		Reason    string        `json:"reason,omitempty"`
	}{r.Key, r.Allowed, r.Current, r.Limit, remaining, r.Unlimited, r.Reason})
}

// CheckLimit compares current usage against the resolved limit. Reaching
// the limit exactly denies the next action.
func CheckLimit(v View, key plan.LimitKey, current int64) LimitCheckResult {
	limit := v.Limits.Get(key)
	res := LimitCheckResult{Key: key, Current: current, Limit: limit}

	if plan.IsUnlimited(limit) {
		res.Allowed = true
		res.Unlimited = true
		res.Remaining = math.Inf(1)
		return res
	}

	res.Allowed = current < limit
	res.Remaining = float64(max(0, limit-current))
	if !res.Allowed {
		res.Reason = LimitReason(key, limit)
	}
	return res
}

// CheckConsumption reports whether amount more units fit under the limit
// on top of current. An amount of one is the same as CheckLimit.
func CheckConsumption(v View, key plan.LimitKey, current, amount int64) LimitCheckResult {
	res := CheckLimit(v, key, current)
	if res.Unlimited || amount <= 1 {
		return res
	}
	res.Allowed = current+amount <= res.Limit
	if !res.Allowed {
		res.Reason = LimitReason(key, res.Limit)
	}
	return res
}

// LimitReason is the user facing sentence for a reached limit.
func LimitReason(key plan.LimitKey, limit int64) string {
	return fmt.Sprintf("You've reached your %s limit (%d). Upgrade your plan for more.", key, limit)
}

// FeatureCheckResult is the outcome of one feature check.
type FeatureCheckResult struct {
	Key          plan.FeatureKey `json:"key"`
	Allowed      bool            `json:"allowed"`
	RequiredPlan plan.Tier       `json:"requiredPlan,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// CheckFeature looks up key in the view and names the cheapest tier that
// would unlock it when denied.
func CheckFeature(v View, key plan.FeatureKey) FeatureCheckResult {
	if v.Features.Has(key) {
		return FeatureCheckResult{Key: key, Allowed: true}
	}
	required := plan.MinPlanFor(key)
	return FeatureCheckResult{
		Key:          key,
		Allowed:      false,
		RequiredPlan: required,
		Reason:       FeatureReason(key, required),
	}
}

// FeatureReason is the user facing sentence for a locked feature.
func FeatureReason(key plan.FeatureKey, required plan.Tier) string {
	return fmt.Sprintf("The %s feature requires the %s plan or higher. Upgrade your plan to unlock it.", key, required.DisplayName())
}
