package mappers

import (
	"fmt"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/persistence/models"
)

type SubscriptionMapper interface {
	ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error)
	ToModel(entity *subscription.Subscription) *models.SubscriptionModel
}

type SubscriptionMapperImpl struct{}

func NewSubscriptionMapper() SubscriptionMapper {
	return &SubscriptionMapperImpl{}
}

// LimitColumns maps each limit key to its nullable override column.
func LimitColumns(m *models.SubscriptionModel) map[plan.LimitKey]**int64 {
	return map[plan.LimitKey]**int64{
		plan.LimitDocuments:        &m.MaxContracts,
		plan.LimitAiGenerations:    &m.MaxAiGenerations,
		plan.LimitAiTokens:         &m.MaxAiTokens,
		plan.LimitComplianceChecks: &m.MaxComplianceChecks,
		plan.LimitESignatures:      &m.MaxESignatures,
		plan.LimitTeamMembers:      &m.MaxTeamMembers,
		plan.LimitStorageMb:        &m.MaxStorage,
		plan.LimitTemplates:        &m.MaxTemplates,
	}
}

// FeatureColumns maps each feature key to its nullable override column.
func FeatureColumns(m *models.SubscriptionModel) map[plan.FeatureKey]**bool {
	return map[plan.FeatureKey]**bool{
		plan.FeatureAiDrafting:           &m.HasAiDrafting,
		plan.FeatureTemplatesMarketplace: &m.HasTemplatesMarketplace,
		plan.FeatureComplianceBasic:      &m.HasComplianceBasic,
		plan.FeatureVersionHistory:       &m.HasVersionHistory,
		plan.FeatureAiReview:             &m.HasAiReview,
		plan.FeatureComplianceAuto:       &m.HasComplianceAuto,
		plan.FeatureMatters:              &m.HasMatters,
		plan.FeatureTeamMessaging:        &m.HasTeamMessaging,
		plan.FeatureESignatures:          &m.HasESignatures,
		plan.FeatureCustomTemplates:      &m.HasCustomTemplates,
		plan.FeatureBulkOperations:       &m.HasBulkOperations,
		plan.FeatureApiAccess:            &m.HasApiAccess,
		plan.FeatureAdvancedAnalytics:    &m.HasAdvancedAnalytics,
		plan.FeatureCustomBranding:       &m.HasCustomBranding,
		plan.FeaturePrioritySupport:      &m.HasPrioritySupport,
		plan.FeatureAuditLog:             &m.HasAuditLog,
		plan.FeatureSso:                  &m.HasSso,
		plan.FeatureDedicatedManager:     &m.HasDedicatedManager,
	}
}

func (m *SubscriptionMapperImpl) ToEntity(model *models.SubscriptionModel) (*subscription.Subscription, error) {
	if model == nil {
		return nil, nil
	}

	status, ok := vo.ParseStatus(model.Status)
	if !ok {
		return nil, fmt.Errorf("invalid subscription status: %s", model.Status)
	}

	overrides := subscription.Overrides{
		Limits:   map[plan.LimitKey]int64{},
		Features: map[plan.FeatureKey]bool{},
	}
	for k, col := range LimitColumns(model) {
		if *col != nil {
			overrides.Limits[k] = **col
		}
	}
	for k, col := range FeatureColumns(model) {
		if *col != nil {
			overrides.Features[k] = **col
		}
	}

	linkage := subscription.ProviderLinkage{
		PaymentProvider:          vo.PaymentProvider(deref(model.PaymentProvider)),
		StripeCustomerID:         deref(model.StripeCustomerID),
		StripeSubscriptionID:     deref(model.StripeSubscriptionID),
		StripePriceID:            deref(model.StripePriceID),
		PolarCustomerID:          deref(model.PolarCustomerID),
		PolarSubscriptionID:      deref(model.PolarSubscriptionID),
		PaystackCustomerCode:     deref(model.PaystackCustomerCode),
		PaystackSubscriptionCode: deref(model.PaystackSubscriptionCode),
		PaystackPlanCode:         deref(model.PaystackPlanCode),
	}

	entity, err := subscription.ReconstructSubscription(
		model.ID,
		model.OrganizationID,
		plan.Tier(model.Plan),
		status,
		model.CurrentPeriodStart,
		model.CurrentPeriodEnd,
		model.TrialStart,
		model.TrialEnd,
		model.CancelAtPeriodEnd,
		model.CanceledAt,
		overrides,
		linkage,
		model.Version,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct subscription: %w", err)
	}
	return entity, nil
}

func (m *SubscriptionMapperImpl) ToModel(entity *subscription.Subscription) *models.SubscriptionModel {
	if entity == nil {
		return nil
	}

	link := entity.Provider()
	model := &models.SubscriptionModel{
		ID:                       entity.ID(),
		OrganizationID:           entity.OrganizationID(),
		Plan:                     entity.Plan().String(),
		Status:                   entity.Status().String(),
		CurrentPeriodStart:       entity.CurrentPeriodStart(),
		CurrentPeriodEnd:         entity.CurrentPeriodEnd(),
		TrialStart:               entity.TrialStart(),
		TrialEnd:                 entity.TrialEnd(),
		CancelAtPeriodEnd:        entity.CancelAtPeriodEnd(),
		CanceledAt:               entity.CanceledAt(),
		PaymentProvider:          ptr(link.PaymentProvider.String()),
		StripeCustomerID:         ptr(link.StripeCustomerID),
		StripeSubscriptionID:     ptr(link.StripeSubscriptionID),
		StripePriceID:            ptr(link.StripePriceID),
		PolarCustomerID:          ptr(link.PolarCustomerID),
		PolarSubscriptionID:      ptr(link.PolarSubscriptionID),
		PaystackCustomerCode:     ptr(link.PaystackCustomerCode),
		PaystackSubscriptionCode: ptr(link.PaystackSubscriptionCode),
		PaystackPlanCode:         ptr(link.PaystackPlanCode),
		Version:                  entity.Version(),
		CreatedAt:                entity.CreatedAt(),
		UpdatedAt:                entity.UpdatedAt(),
	}

	o := entity.Overrides()
	for k, col := range LimitColumns(model) {
		if v, ok := o.Limit(k); ok {
			*col = &v
		}
	}
	for k, col := range FeatureColumns(model) {
		if v, ok := o.Feature(k); ok {
			*col = &v
		}
	}
	return model
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func ptr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
