// Package plan is the static catalog of subscription tiers with their
// feature flags, limits and prices.
package plan

// Definition describes one tier. Prices are in cents; nil prices mean the
// tier is sold on custom terms.
type Definition struct {
	Tier         Tier     `json:"tier" yaml:"tier"`
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	MonthlyPrice *int64   `json:"monthlyPrice" yaml:"monthlyPrice"`
	AnnualPrice  *int64   `json:"annualPrice" yaml:"annualPrice"`
	Features     Features `json:"features" yaml:"features"`
	Limits       Limits   `json:"limits" yaml:"limits"`
}

// IsCustomPriced reports whether the tier has no list price.
func (d Definition) IsCustomPriced() bool {
	return d.MonthlyPrice == nil
}

func cents(v int64) *int64 {
	return &v
}

var catalog = buildCatalog()

func buildCatalog() map[Tier]Definition {
	freeFeatures := Features{
		AiDrafting:           true,
		TemplatesMarketplace: true,
	}
	studentFeatures := freeFeatures
	studentFeatures.ComplianceBasic = true
	studentFeatures.VersionHistory = true
	studentFeatures.AiReview = true

	proFeatures := studentFeatures
	proFeatures.ComplianceAuto = true
	proFeatures.Matters = true
	proFeatures.TeamMessaging = true
	proFeatures.ESignatures = true
	proFeatures.CustomTemplates = true
	proFeatures.BulkOperations = true

	maxFeatures := proFeatures
	maxFeatures.ApiAccess = true
	maxFeatures.AdvancedAnalytics = true
	maxFeatures.CustomBranding = true
	maxFeatures.PrioritySupport = true
	maxFeatures.AuditLog = true

	enterpriseFeatures := maxFeatures
	enterpriseFeatures.Sso = true
	enterpriseFeatures.DedicatedManager = true

	return map[Tier]Definition{
		TierFree: {
			Tier:         TierFree,
			Name:         "Free",
			Description:  "Draft your first contracts with **AI assistance** and the public template marketplace.",
			MonthlyPrice: cents(0),
			AnnualPrice:  cents(0),
			Features:     freeFeatures,
			Limits: Limits{
				Documents:        5,
				AiGenerations:    10,
				AiTokens:         10_000,
				ComplianceChecks: 5,
				ESignatures:      3,
				TeamMembers:      1,
				StorageMb:        100,
				Templates:        5,
			},
		},
		TierStudent: {
			Tier:         TierStudent,
			Name:         "Student",
			Description:  "For law students: version history, *AI review* and basic compliance checks.",
			MonthlyPrice: cents(900),
			AnnualPrice:  cents(8_640),
			Features:     studentFeatures,
			Limits: Limits{
				Documents:        25,
				AiGenerations:    50,
				AiTokens:         50_000,
				ComplianceChecks: 20,
				ESignatures:      10,
				TeamMembers:      1,
				StorageMb:        1_024,
				Templates:        20,
			},
		},
		TierPro: {
			Tier:         TierPro,
			Name:         "Pro",
			Description:  "For practitioners: matters, team messaging, e-signatures and **automated compliance**.",
			MonthlyPrice: cents(2_900),
			AnnualPrice:  cents(27_840),
			Features:     proFeatures,
			Limits: Limits{
				Documents:        100,
				AiGenerations:    200,
				AiTokens:         200_000,
				ComplianceChecks: 100,
				ESignatures:      50,
				TeamMembers:      5,
				StorageMb:        10_240,
				Templates:        100,
			},
		},
		TierMax: {
			Tier:         TierMax,
			Name:         "Max",
			Description:  "For firms: API access, analytics, custom branding and an audit log. Unlimited templates.",
			MonthlyPrice: cents(7_900),
			AnnualPrice:  cents(75_840),
			Features:     maxFeatures,
			Limits: Limits{
				Documents:        500,
				AiGenerations:    1_000,
				AiTokens:         1_000_000,
				ComplianceChecks: 500,
				ESignatures:      250,
				TeamMembers:      20,
				StorageMb:        51_200,
				Templates:        Unlimited,
			},
		},
		TierEnterprise: {
			Tier:        TierEnterprise,
			Name:        "Enterprise",
			Description: "Everything unlimited, with SSO and a dedicated account manager. [Contact sales](mailto:sales@lexora.app).",
			Features:    enterpriseFeatures,
			Limits: Limits{
				Documents:        Unlimited,
				AiGenerations:    Unlimited,
				AiTokens:         Unlimited,
				ComplianceChecks: Unlimited,
				ESignatures:      Unlimited,
				TeamMembers:      Unlimited,
				StorageMb:        Unlimited,
				Templates:        Unlimited,
			},
		},
	}
}

// Get returns the definition for t. It is total: legacy names resolve to
// their successor and anything unrecognised resolves to FREE.
func Get(t Tier) Definition {
	return catalog[t.Canonical()]
}

// All returns the canonical definitions from cheapest to most expensive.
func All() []Definition {
	out := make([]Definition, 0, len(orderedTiers))
	for _, t := range orderedTiers {
		out = append(out, catalog[t])
	}
	return out
}

// MinPlanFor returns the cheapest tier whose defaults include k.
// Unknown keys report ENTERPRISE so the upsell never points too low.
func MinPlanFor(k FeatureKey) Tier {
	for _, t := range orderedTiers {
		if catalog[t].Features.Has(k) {
			return t
		}
	}
	return TierEnterprise
}

// FeatureMinPlans maps every feature key to MinPlanFor.
func FeatureMinPlans() map[FeatureKey]Tier {
	out := make(map[FeatureKey]Tier, len(featureKeys))
	for _, k := range featureKeys {
		out[k] = MinPlanFor(k)
	}
	return out
}

// MinPlanForLimit returns the cheapest tier allowing at least want units.
func MinPlanForLimit(k LimitKey, want int64) Tier {
	for _, t := range orderedTiers {
		if AtLeast(catalog[t].Limits.Get(k), want) {
			return t
		}
	}
	return TierEnterprise
}
