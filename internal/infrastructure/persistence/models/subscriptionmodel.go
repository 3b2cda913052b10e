package models

import (
	"time"

	"gorm.io/gorm"

	"github.com/lexora-inc/lexora/internal/shared/constants"
)

// SubscriptionModel represents the database persistence model for subscriptions.
// Nullable override columns mean "use the plan default".
type SubscriptionModel struct {
	ID                 uint   `gorm:"primarykey"`
	OrganizationID     string `gorm:"uniqueIndex;not null;size:64"`
	Plan               string `gorm:"not null;size:20;default:FREE"`
	Status             string `gorm:"not null;size:20;default:ACTIVE;index:idx_subscription_status"`
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CancelAtPeriodEnd  bool `gorm:"not null;default:false"`
	CanceledAt         *time.Time

	MaxContracts        *int64 `gorm:"column:max_contracts"`
	MaxAiGenerations    *int64 `gorm:"column:max_ai_generations"`
	MaxAiTokens         *int64 `gorm:"column:max_ai_tokens"`
	MaxComplianceChecks *int64 `gorm:"column:max_compliance_checks"`
	MaxESignatures      *int64 `gorm:"column:max_e_signatures"`
	MaxTeamMembers      *int64 `gorm:"column:max_team_members"`
	MaxStorage          *int64 `gorm:"column:max_storage"`
	MaxTemplates        *int64 `gorm:"column:max_templates"`

	HasAiDrafting           *bool `gorm:"column:has_ai_drafting"`
	HasTemplatesMarketplace *bool `gorm:"column:has_templates_marketplace"`
	HasComplianceBasic      *bool `gorm:"column:has_compliance_basic"`
	HasVersionHistory       *bool `gorm:"column:has_version_history"`
	HasAiReview             *bool `gorm:"column:has_ai_review"`
	HasComplianceAuto       *bool `gorm:"column:has_compliance_auto"`
	HasMatters              *bool `gorm:"column:has_matters"`
	HasTeamMessaging        *bool `gorm:"column:has_team_messaging"`
	HasESignatures          *bool `gorm:"column:has_e_signatures"`
	HasCustomTemplates      *bool `gorm:"column:has_custom_templates"`
	HasBulkOperations       *bool `gorm:"column:has_bulk_operations"`
	HasApiAccess            *bool `gorm:"column:has_api_access"`
	HasAdvancedAnalytics    *bool `gorm:"column:has_advanced_analytics"`
	HasCustomBranding       *bool `gorm:"column:has_custom_branding"`
	HasPrioritySupport      *bool `gorm:"column:has_priority_support"`
	HasAuditLog             *bool `gorm:"column:has_audit_log"`
	HasSso                  *bool `gorm:"column:has_sso"`
	HasDedicatedManager     *bool `gorm:"column:has_dedicated_manager"`

	PaymentProvider          *string `gorm:"size:20"`
	StripeCustomerID         *string `gorm:"size:255;index"`
	StripeSubscriptionID     *string `gorm:"size:255;index"`
	StripePriceID            *string `gorm:"size:255"`
	PolarCustomerID          *string `gorm:"size:255;index"`
	PolarSubscriptionID      *string `gorm:"size:255;index"`
	PaystackCustomerCode     *string `gorm:"size:255;index"`
	PaystackSubscriptionCode *string `gorm:"size:255;index"`
	PaystackPlanCode         *string `gorm:"size:255"`

	Version   int `gorm:"not null;default:1"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM
func (SubscriptionModel) TableName() string {
	return constants.TableSubscriptions
}

// BeforeCreate hook for GORM
func (s *SubscriptionModel) BeforeCreate(tx *gorm.DB) error {
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}
