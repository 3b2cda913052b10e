package subscription

import (
	"fmt"
	"time"

	"github.com/lexora-inc/lexora/internal/domain/plan"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
)

// Subscription is the billing state of one organization. Rows are never
// deleted; cancellation is a status transition.
type Subscription struct {
	id                 uint
	organizationID     string
	plan               plan.Tier
	status             vo.SubscriptionStatus
	currentPeriodStart *time.Time
	currentPeriodEnd   *time.Time
	trialStart         *time.Time
	trialEnd           *time.Time
	cancelAtPeriodEnd  bool
	canceledAt         *time.Time
	overrides          Overrides
	provider           ProviderLinkage
	version            int
	createdAt          time.Time
	updatedAt          time.Time
}

// ProviderLinkage holds the identifiers each payment provider knows the
// organization by. Empty strings mean unset.
type ProviderLinkage struct {
	PaymentProvider          vo.PaymentProvider
	StripeCustomerID         string
	StripeSubscriptionID     string
	StripePriceID            string
	PolarCustomerID          string
	PolarSubscriptionID      string
	PaystackCustomerCode     string
	PaystackSubscriptionCode string
	PaystackPlanCode         string
}

// CustomerID returns the customer identifier stored for p.
func (l ProviderLinkage) CustomerID(p vo.PaymentProvider) string {
	switch p {
	case vo.ProviderStripe:
		return l.StripeCustomerID
	case vo.ProviderPolar:
		return l.PolarCustomerID
	case vo.ProviderPaystack:
		return l.PaystackCustomerCode
	}
	return ""
}

// SubscriptionID returns the provider subscription identifier stored for p.
func (l ProviderLinkage) SubscriptionID(p vo.PaymentProvider) string {
	switch p {
	case vo.ProviderStripe:
		return l.StripeSubscriptionID
	case vo.ProviderPolar:
		return l.PolarSubscriptionID
	case vo.ProviderPaystack:
		return l.PaystackSubscriptionCode
	}
	return ""
}

// ProviderState is a provider's view of a subscription, already translated
// into internal vocabulary.
type ProviderState struct {
	Provider           vo.PaymentProvider
	Plan               plan.Tier
	Status             vo.SubscriptionStatus
	CustomerID         string
	SubscriptionID     string
	PriceID            string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

// NewSubscription creates the default FREE/ACTIVE row for an organization.
func NewSubscription(organizationID string) (*Subscription, error) {
	if organizationID == "" {
		return nil, ErrOrganizationIDRequired
	}
	now := time.Now().UTC()
	return &Subscription{
		organizationID: organizationID,
		plan:           plan.TierFree,
		status:         vo.StatusActive,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}, nil
}

// ReconstructSubscription rebuilds the aggregate from persistence. Legacy
// plan names are kept so resolution can map them.
func ReconstructSubscription(
	id uint,
	organizationID string,
	tier plan.Tier,
	status vo.SubscriptionStatus,
	currentPeriodStart, currentPeriodEnd *time.Time,
	trialStart, trialEnd *time.Time,
	cancelAtPeriodEnd bool,
	canceledAt *time.Time,
	overrides Overrides,
	provider ProviderLinkage,
	version int,
	createdAt, updatedAt time.Time,
) (*Subscription, error) {
	if id == 0 {
		return nil, fmt.Errorf("subscription ID cannot be zero")
	}
	if organizationID == "" {
		return nil, ErrOrganizationIDRequired
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, status)
	}
	if provider.PaymentProvider != "" && !provider.PaymentProvider.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidProvider, provider.PaymentProvider)
	}

	return &Subscription{
		id:                 id,
		organizationID:     organizationID,
		plan:               tier,
		status:             status,
		currentPeriodStart: currentPeriodStart,
		currentPeriodEnd:   currentPeriodEnd,
		trialStart:         trialStart,
		trialEnd:           trialEnd,
		cancelAtPeriodEnd:  cancelAtPeriodEnd,
		canceledAt:         canceledAt,
		overrides:          overrides,
		provider:           provider,
		version:            version,
		createdAt:          createdAt,
		updatedAt:          updatedAt,
	}, nil
}

func (s *Subscription) ID() uint { return s.id }
func (s *Subscription) OrganizationID() string { return s.organizationID }
func (s *Subscription) Plan() plan.Tier { return s.plan }
func (s *Subscription) Status() vo.SubscriptionStatus { return s.status }
func (s *Subscription) CurrentPeriodStart() *time.Time { return s.currentPeriodStart }
func (s *Subscription) CurrentPeriodEnd() *time.Time { return s.currentPeriodEnd }
func (s *Subscription) TrialStart() *time.Time { return s.trialStart }
func (s *Subscription) TrialEnd() *time.Time { return s.trialEnd }
func (s *Subscription) CancelAtPeriodEnd() bool { return s.cancelAtPeriodEnd }
func (s *Subscription) CanceledAt() *time.Time { return s.canceledAt }
func (s *Subscription) Overrides() Overrides { return s.overrides }
func (s *Subscription) Provider() ProviderLinkage { return s.provider }
func (s *Subscription) PaymentProvider() vo.PaymentProvider { return s.provider.PaymentProvider }
func (s *Subscription) Version() int { return s.version }
func (s *Subscription) CreatedAt() time.Time { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time { return s.updatedAt }

// SetID sets the subscription ID (only for persistence layer use)
func (s *Subscription) SetID(id uint) error {
	if s.id != 0 {
		return fmt.Errorf("subscription ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("subscription ID cannot be zero")
	}
	s.id = id
	return nil
}

// GrantsPaidAccess reports whether the stored plan is in effect.
func (s *Subscription) GrantsPaidAccess() bool {
	return s.status.GrantsAccess()
}

// ApplyProviderState overwrites plan, status, periods and linkage with the
// provider's view. Every override is replaced with a snapshot of the new
// plan's defaults, so manual grants do not survive a billing event.
func (s *Subscription) ApplyProviderState(state ProviderState) error {
	if !state.Provider.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidProvider, state.Provider)
	}
	if !state.Status.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidStatus, state.Status)
	}

	tier := state.Plan.Canonical()
	s.plan = tier
	s.status = state.Status
	s.currentPeriodStart = state.CurrentPeriodStart
	s.currentPeriodEnd = state.CurrentPeriodEnd
	s.trialStart = state.TrialStart
	s.trialEnd = state.TrialEnd
	s.cancelAtPeriodEnd = state.CancelAtPeriodEnd
	s.canceledAt = state.CanceledAt
	s.overrides = SnapshotOverrides(plan.Get(tier))
	s.link(state)
	s.touch()
	return nil
}

// Cancel drops the organization back to FREE with FREE defaults.
func (s *Subscription) Cancel(at time.Time) {
	at = at.UTC()
	s.plan = plan.TierFree
	s.status = vo.StatusCanceled
	s.cancelAtPeriodEnd = false
	s.canceledAt = &at
	s.overrides = SnapshotOverrides(plan.Get(plan.TierFree))
	s.touch()
}

// GrantOverrides lays o over the existing overrides without touching the plan.
// Rows whose status does not grant access resolve to FREE and ignore their
// overrides, so grants on them are refused.
func (s *Subscription) GrantOverrides(o Overrides) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if !s.GrantsPaidAccess() {
		return fmt.Errorf("%w: %s", ErrOverrideWithoutAccess, s.status)
	}
	s.overrides = s.overrides.Merge(o)
	s.touch()
	return nil
}

// ClearOverrides removes every override so the plan defaults apply again.
func (s *Subscription) ClearOverrides() {
	s.overrides = Overrides{}
	s.touch()
}

// LinkCustomer records the provider customer without changing plan state.
func (s *Subscription) LinkCustomer(p vo.PaymentProvider, customerID string) error {
	if !p.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidProvider, p)
	}
	s.link(ProviderState{Provider: p, CustomerID: customerID})
	s.touch()
	return nil
}

func (s *Subscription) link(state ProviderState) {
	s.provider.PaymentProvider = state.Provider
	switch state.Provider {
	case vo.ProviderStripe:
		setIfPresent(&s.provider.StripeCustomerID, state.CustomerID)
		setIfPresent(&s.provider.StripeSubscriptionID, state.SubscriptionID)
		setIfPresent(&s.provider.StripePriceID, state.PriceID)
	case vo.ProviderPolar:
		setIfPresent(&s.provider.PolarCustomerID, state.CustomerID)
		setIfPresent(&s.provider.PolarSubscriptionID, state.SubscriptionID)
	case vo.ProviderPaystack:
		setIfPresent(&s.provider.PaystackCustomerCode, state.CustomerID)
		setIfPresent(&s.provider.PaystackSubscriptionCode, state.SubscriptionID)
		setIfPresent(&s.provider.PaystackPlanCode, state.PriceID)
	}
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (s *Subscription) touch() {
	s.updatedAt = time.Now().UTC()
}

// IncrementVersion is called by the repository after a successful update.
func (s *Subscription) IncrementVersion() {
	s.version++
}
