package plan

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Tier identifies a pricing bundle.
type Tier string

const (
	TierFree       Tier = "FREE"
	TierStudent    Tier = "STUDENT"
	TierPro        Tier = "PRO"
	TierMax        Tier = "MAX"
	TierEnterprise Tier = "ENTERPRISE"
)

// Legacy tiers from the previous pricing scheme. Rows may still carry them.
const (
	TierStarter      Tier = "STARTER"
	TierProfessional Tier = "PROFESSIONAL"
	TierBusiness     Tier = "BUSINESS"
)

var orderedTiers = []Tier{TierFree, TierStudent, TierPro, TierMax, TierEnterprise}

var legacyTiers = map[Tier]Tier{
	TierStarter:      TierFree,
	TierProfessional: TierPro,
	TierBusiness:     TierMax,
}

// Tiers returns the canonical tiers from cheapest to most expensive.
func Tiers() []Tier {
	out := make([]Tier, len(orderedTiers))
	copy(out, orderedTiers)
	return out
}

func (t Tier) String() string {
	return string(t)
}

// IsValid reports whether t is a canonical tier.
func (t Tier) IsValid() bool {
	return t.Rank() >= 0
}

// IsLegacy reports whether t is a retired tier name.
func (t Tier) IsLegacy() bool {
	_, ok := legacyTiers[t]
	return ok
}

// Rank orders canonical tiers; legacy and unknown tiers rank -1.
func (t Tier) Rank() int {
	for i, candidate := range orderedTiers {
		if candidate == t {
			return i
		}
	}
	return -1
}

// Canonical maps legacy names onto current tiers. Unknown values become FREE.
func (t Tier) Canonical() Tier {
	if t.IsValid() {
		return t
	}
	if mapped, ok := legacyTiers[t]; ok {
		return mapped
	}
	return TierFree
}

// AtLeast reports whether t unlocks everything other does.
func (t Tier) AtLeast(other Tier) bool {
	return t.Canonical().Rank() >= other.Canonical().Rank()
}

// DisplayName is the title-cased name used in user facing messages.
func (t Tier) DisplayName() string {
	return cases.Title(language.English).String(strings.ToLower(string(t.Canonical())))
}

// ParseTier normalises s. The boolean is false when s named neither a
// canonical nor a legacy tier, in which case FREE is returned.
func ParseTier(s string) (Tier, bool) {
	t := Tier(strings.ToUpper(strings.TrimSpace(s)))
	if t.IsValid() {
		return t, true
	}
	if mapped, ok := legacyTiers[t]; ok {
		return mapped, true
	}
	return TierFree, false
}
