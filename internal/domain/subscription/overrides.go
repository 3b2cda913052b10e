package subscription

import "github.com/lexora-inc/lexora/internal/domain/plan"

// Overrides are per-organization values that shadow the plan defaults. A key
// missing from a map means the plan default applies.
type Overrides struct {
	Limits   map[plan.LimitKey]int64
	Features map[plan.FeatureKey]bool
}

// SnapshotOverrides copies every default of def into an Overrides value.
func SnapshotOverrides(def plan.Definition) Overrides {
	o := Overrides{
		Limits:   make(map[plan.LimitKey]int64, len(plan.ListLimitKeys())),
		Features: make(map[plan.FeatureKey]bool, len(plan.ListFeatureKeys())),
	}
	for _, k := range plan.ListLimitKeys() {
		o.Limits[k] = def.Limits.Get(k)
	}
	for _, k := range plan.ListFeatureKeys() {
		o.Features[k] = def.Features.Has(k)
	}
	return o
}

func (o Overrides) IsEmpty() bool {
	return len(o.Limits) == 0 && len(o.Features) == 0
}

// Limit returns the override for k, if any.
func (o Overrides) Limit(k plan.LimitKey) (int64, bool) {
	v, ok := o.Limits[k]
	return v, ok
}

// Feature returns the override for k, if any.
func (o Overrides) Feature(k plan.FeatureKey) (bool, bool) {
	v, ok := o.Features[k]
	return v, ok
}

// Merge returns o with every value of other laid on top.
func (o Overrides) Merge(other Overrides) Overrides {
	out := o.clone()
	for k, v := range other.Limits {
		out.Limits[k] = v
	}
	for k, v := range other.Features {
		out.Features[k] = v
	}
	return out
}

// ApplyTo resolves def's defaults against o.
func (o Overrides) ApplyTo(def plan.Definition) (plan.Features, plan.Limits) {
	features := def.Features
	limits := def.Limits
	for k, v := range o.Features {
		features = features.With(k, v)
	}
	for k, v := range o.Limits {
		limits = limits.With(k, v)
	}
	return features, limits
}

// Validate rejects unknown keys and limits below the Unlimited sentinel.
func (o Overrides) Validate() error {
	for k, v := range o.Limits {
		if !k.IsValid() {
			return ErrUnknownLimit(string(k))
		}
		if v < plan.Unlimited {
			return ErrInvalidOverrideValue(string(k), v)
		}
	}
	for k := range o.Features {
		if !k.IsValid() {
			return ErrUnknownFeature(string(k))
		}
	}
	return nil
}

func (o Overrides) clone() Overrides {
	out := Overrides{
		Limits:   make(map[plan.LimitKey]int64, len(o.Limits)),
		Features: make(map[plan.FeatureKey]bool, len(o.Features)),
	}
	for k, v := range o.Limits {
		out.Limits[k] = v
	}
	for k, v := range o.Features {
		out.Features[k] = v
	}
	return out
}
