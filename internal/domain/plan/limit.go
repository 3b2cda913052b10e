package plan

// Unlimited is the sentinel limit value meaning no cap.
const Unlimited int64 = -1

// LimitKey names a numeric quota dimension.
type LimitKey string

const (
	LimitDocuments        LimitKey = "documents"
	LimitAiGenerations    LimitKey = "aiGenerations"
	LimitAiTokens         LimitKey = "aiTokens"
	LimitComplianceChecks LimitKey = "complianceChecks"
	LimitESignatures      LimitKey = "eSignatures"
	LimitTeamMembers      LimitKey = "teamMembers"
	LimitStorageMb        LimitKey = "storageMb"
	LimitTemplates        LimitKey = "templates"
)

var limitKeys = []LimitKey{
	LimitDocuments,
	LimitAiGenerations,
	LimitAiTokens,
	LimitComplianceChecks,
	LimitESignatures,
	LimitTeamMembers,
	LimitStorageMb,
	LimitTemplates,
}

// ListLimitKeys returns every limit key in catalog order.
func ListLimitKeys() []LimitKey {
	out := make([]LimitKey, len(limitKeys))
	copy(out, limitKeys)
	return out
}

func (k LimitKey) String() string {
	return string(k)
}

func (k LimitKey) IsValid() bool {
	_, ok := (&Limits{}).field(k)
	return ok
}

// ParseLimitKey rejects anything outside the closed set.
func ParseLimitKey(s string) (LimitKey, bool) {
	k := LimitKey(s)
	return k, k.IsValid()
}

// OverrideName is the subscription column that shadows this limit.
func (k LimitKey) OverrideName() string {
	switch k {
	case LimitDocuments:
		return "maxContracts"
	case LimitAiGenerations:
		return "maxAiGenerations"
	case LimitAiTokens:
		return "maxAiTokens"
	case LimitComplianceChecks:
		return "maxComplianceChecks"
	case LimitESignatures:
		return "maxESignatures"
	case LimitTeamMembers:
		return "maxTeamMembers"
	case LimitStorageMb:
		return "maxStorage"
	case LimitTemplates:
		return "maxTemplates"
	}
	return ""
}

// LimitKeyForOverride is the inverse of OverrideName.
func LimitKeyForOverride(name string) (LimitKey, bool) {
	for _, k := range limitKeys {
		if k.OverrideName() == name {
			return k, true
		}
	}
	return "", false
}

// Limits holds one value per LimitKey; Unlimited means no cap.
type Limits struct {
	Documents        int64 `json:"documents" yaml:"documents"`
	AiGenerations    int64 `json:"aiGenerations" yaml:"aiGenerations"`
	AiTokens         int64 `json:"aiTokens" yaml:"aiTokens"`
	ComplianceChecks int64 `json:"complianceChecks" yaml:"complianceChecks"`
	ESignatures      int64 `json:"eSignatures" yaml:"eSignatures"`
	TeamMembers      int64 `json:"teamMembers" yaml:"teamMembers"`
	StorageMb        int64 `json:"storageMb" yaml:"storageMb"`
	Templates        int64 `json:"templates" yaml:"templates"`
}

func (l *Limits) field(k LimitKey) (*int64, bool) {
	switch k {
	case LimitDocuments:
		return &l.Documents, true
	case LimitAiGenerations:
		return &l.AiGenerations, true
	case LimitAiTokens:
		return &l.AiTokens, true
	case LimitComplianceChecks:
		return &l.ComplianceChecks, true
	case LimitESignatures:
		return &l.ESignatures, true
	case LimitTeamMembers:
		return &l.TeamMembers, true
	case LimitStorageMb:
		return &l.StorageMb, true
	case LimitTemplates:
		return &l.Templates, true
	}
	return nil, false
}

// Get returns the value for k. Unknown keys report a zero limit so that
// nothing is ever granted through a typo.
func (l Limits) Get(k LimitKey) int64 {
	if p, ok := l.field(k); ok {
		return *p
	}
	return 0
}

// With returns a copy with k set to v. Unknown keys leave l unchanged.
func (l Limits) With(k LimitKey, v int64) Limits {
	if p, ok := l.field(k); ok {
		*p = v
	}
	return l
}

// IsUnlimited reports whether v is the Unlimited sentinel.
func IsUnlimited(v int64) bool {
	return v == Unlimited
}

// AtLeast compares two limit values treating Unlimited as infinity.
func AtLeast(a, b int64) bool {
	if IsUnlimited(a) {
		return true
	}
	if IsUnlimited(b) {
		return false
	}
	return a >= b
}
