package plan

// FeatureKey names a boolean capability gated by plan.
type FeatureKey string

const (
	FeatureAiDrafting           FeatureKey = "hasAiDrafting"
	FeatureTemplatesMarketplace FeatureKey = "hasTemplatesMarketplace"
	FeatureComplianceBasic      FeatureKey = "hasComplianceBasic"
	FeatureVersionHistory       FeatureKey = "hasVersionHistory"
	FeatureAiReview             FeatureKey = "hasAiReview"
	FeatureComplianceAuto       FeatureKey = "hasComplianceAuto"
	FeatureMatters              FeatureKey = "hasMatters"
	FeatureTeamMessaging        FeatureKey = "hasTeamMessaging"
	FeatureESignatures          FeatureKey = "hasESignatures"
	FeatureCustomTemplates      FeatureKey = "hasCustomTemplates"
	FeatureBulkOperations       FeatureKey = "hasBulkOperations"
	FeatureApiAccess            FeatureKey = "hasApiAccess"
	FeatureAdvancedAnalytics    FeatureKey = "hasAdvancedAnalytics"
	FeatureCustomBranding       FeatureKey = "hasCustomBranding"
	FeaturePrioritySupport      FeatureKey = "hasPrioritySupport"
	FeatureAuditLog             FeatureKey = "hasAuditLog"
	FeatureSso                  FeatureKey = "hasSso"
	FeatureDedicatedManager     FeatureKey = "hasDedicatedManager"
)

var featureKeys = []FeatureKey{
	FeatureAiDrafting,
	FeatureTemplatesMarketplace,
	FeatureComplianceBasic,
	FeatureVersionHistory,
	FeatureAiReview,
	FeatureComplianceAuto,
	FeatureMatters,
	FeatureTeamMessaging,
	FeatureESignatures,
	FeatureCustomTemplates,
	FeatureBulkOperations,
	FeatureApiAccess,
	FeatureAdvancedAnalytics,
	FeatureCustomBranding,
	FeaturePrioritySupport,
	FeatureAuditLog,
	FeatureSso,
	FeatureDedicatedManager,
}

// ListFeatureKeys returns every feature key in catalog order.
func ListFeatureKeys() []FeatureKey {
	out := make([]FeatureKey, len(featureKeys))
	copy(out, featureKeys)
	return out
}

func (k FeatureKey) String() string {
	return string(k)
}

func (k FeatureKey) IsValid() bool {
	_, ok := (&Features{}).field(k)
	return ok
}

// ParseFeatureKey rejects anything outside the closed set.
func ParseFeatureKey(s string) (FeatureKey, bool) {
	k := FeatureKey(s)
	return k, k.IsValid()
}

// Features is the full flag set of a plan or a resolved entitlement.
type Features struct {
	AiDrafting           bool `json:"hasAiDrafting" yaml:"hasAiDrafting"`
	TemplatesMarketplace bool `json:"hasTemplatesMarketplace" yaml:"hasTemplatesMarketplace"`
	ComplianceBasic      bool `json:"hasComplianceBasic" yaml:"hasComplianceBasic"`
	VersionHistory       bool `json:"hasVersionHistory" yaml:"hasVersionHistory"`
	AiReview             bool `json:"hasAiReview" yaml:"hasAiReview"`
	ComplianceAuto       bool `json:"hasComplianceAuto" yaml:"hasComplianceAuto"`
	Matters              bool `json:"hasMatters" yaml:"hasMatters"`
	TeamMessaging        bool `json:"hasTeamMessaging" yaml:"hasTeamMessaging"`
	ESignatures          bool `json:"hasESignatures" yaml:"hasESignatures"`
	CustomTemplates      bool `json:"hasCustomTemplates" yaml:"hasCustomTemplates"`
	BulkOperations       bool `json:"hasBulkOperations" yaml:"hasBulkOperations"`
	ApiAccess            bool `json:"hasApiAccess" yaml:"hasApiAccess"`
	AdvancedAnalytics    bool `json:"hasAdvancedAnalytics" yaml:"hasAdvancedAnalytics"`
	CustomBranding       bool `json:"hasCustomBranding" yaml:"hasCustomBranding"`
	PrioritySupport      bool `json:"hasPrioritySupport" yaml:"hasPrioritySupport"`
	AuditLog             bool `json:"hasAuditLog" yaml:"hasAuditLog"`
	Sso                  bool `json:"hasSso" yaml:"hasSso"`
	DedicatedManager     bool `json:"hasDedicatedManager" yaml:"hasDedicatedManager"`
}

func (f *Features) field(k FeatureKey) (*bool, bool) {
	switch k {
	case FeatureAiDrafting:
		return &f.AiDrafting, true
	case FeatureTemplatesMarketplace:
		return &f.TemplatesMarketplace, true
	case FeatureComplianceBasic:
		return &f.ComplianceBasic, true
	case FeatureVersionHistory:
		return &f.VersionHistory, true
	case FeatureAiReview:
		return &f.AiReview, true
	case FeatureComplianceAuto:
		return &f.ComplianceAuto, true
	case FeatureMatters:
		return &f.Matters, true
	case FeatureTeamMessaging:
		return &f.TeamMessaging, true
	case FeatureESignatures:
		return &f.ESignatures, true
	case FeatureCustomTemplates:
		return &f.CustomTemplates, true
	case FeatureBulkOperations:
		return &f.BulkOperations, true
	case FeatureApiAccess:
		return &f.ApiAccess, true
	case FeatureAdvancedAnalytics:
		return &f.AdvancedAnalytics, true
	case FeatureCustomBranding:
		return &f.CustomBranding, true
	case FeaturePrioritySupport:
		return &f.PrioritySupport, true
	case FeatureAuditLog:
		return &f.AuditLog, true
	case FeatureSso:
		return &f.Sso, true
	case FeatureDedicatedManager:
		return &f.DedicatedManager, true
	}
	return nil, false
}

// Has returns the flag for k. Unknown keys are never granted.
func (f Features) Has(k FeatureKey) bool {
	p, ok := f.field(k)
	return ok && *p
}

// With returns a copy with k set to v. Unknown keys leave f unchanged.
func (f Features) With(k FeatureKey, v bool) Features {
	if p, ok := f.field(k); ok {
		*p = v
	}
	return f
}

// Enabled lists the granted keys in catalog order.
func (f Features) Enabled() []FeatureKey {
	var out []FeatureKey
	for _, k := range featureKeys {
		if f.Has(k) {
			out = append(out, k)
		}
	}
	return out
}
