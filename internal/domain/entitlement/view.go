// Package entitlement resolves what an organization may do under its
// subscription and evaluates single feature and limit checks.
package entitlement

import (
	"time"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
)

// View is the effective entitlement of an organization.
type View struct {
	OrganizationID     string                `json:"organizationId"`
	Plan               plan.Tier             `json:"plan"`
	Status             vo.SubscriptionStatus `json:"status"`
	Features           plan.Features         `json:"features"`
	Limits             plan.Limits           `json:"limits"`
	HasSubscription    bool                  `json:"hasSubscription"`
	PaymentProvider    vo.PaymentProvider    `json:"paymentProvider,omitempty"`
	CurrentPeriodStart *time.Time            `json:"currentPeriodStart,omitempty"`
	CurrentPeriodEnd   *time.Time            `json:"currentPeriodEnd,omitempty"`
	CancelAtPeriodEnd  bool                  `json:"cancelAtPeriodEnd"`
}

// Default is the view of an organization that has never touched billing.
func Default(organizationID string) View {
	return freeView(organizationID, vo.StatusActive, false)
}

// Resolve merges plan defaults with the row's overrides. A nil row yields
// Default. A status that does not grant access resolves to FREE defaults
// while still reporting the stored status. Basic compliance is always on.
func Resolve(organizationID string, sub *subscription.Subscription) View {
	if sub == nil {
		return Default(organizationID)
	}
	if !sub.GrantsPaidAccess() {
		v := freeView(organizationID, sub.Status(), true)
		v.PaymentProvider = sub.PaymentProvider()
		return v
	}

	tier := sub.Plan().Canonical()
	features, limits := sub.Overrides().ApplyTo(plan.Get(tier))
	features.ComplianceBasic = true

	return View{
		OrganizationID:     organizationID,
		Plan:               tier,
		Status:             sub.Status(),
		Features:           features,
		Limits:             limits,
		HasSubscription:    true,
		PaymentProvider:    sub.PaymentProvider(),
		CurrentPeriodStart: sub.CurrentPeriodStart(),
		CurrentPeriodEnd:   sub.CurrentPeriodEnd(),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd(),
	}
}

func freeView(organizationID string, status vo.SubscriptionStatus, hasSubscription bool) View {
	def := plan.Get(plan.TierFree)
	features := def.Features
	features.ComplianceBasic = true
	return View{
		OrganizationID:  organizationID,
		Plan:            plan.TierFree,
		Status:          status,
		Features:        features,
		Limits:          def.Limits,
		HasSubscription: hasSubscription,
	}
}
