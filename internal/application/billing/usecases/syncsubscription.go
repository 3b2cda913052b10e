package usecases

import (
	"context"
	"time"

	"github.com/lexora-inc/lexora/internal/application/billing/dto"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/shared/utils"
)

// SyncStripeSubscriptionUseCase handles customer.subscription.created and
// customer.subscription.updated.
type SyncStripeSubscriptionUseCase struct {
	reconciler *Reconciler
}

func NewSyncStripeSubscriptionUseCase(reconciler *Reconciler) *SyncStripeSubscriptionUseCase {
	return &SyncStripeSubscriptionUseCase{reconciler: reconciler}
}

func (uc *SyncStripeSubscriptionUseCase) Execute(ctx context.Context, payload *dto.StripeSubscription) (*SyncResult, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}
	ref := providerRef{
		Provider:       vo.ProviderStripe,
		OrganizationID: payload.OrganizationID(),
		SubscriptionID: payload.ID,
		CustomerID:     payload.Customer,
	}

	mapped, recognized := vo.MapStripeStatus(payload.Status)
	periodStart, periodEnd := payload.Period()
	trialStart, trialEnd := payload.Trial()

	return uc.reconciler.apply(ctx, ref, subscription.ProviderState{
		Provider:           vo.ProviderStripe,
		Plan:               uc.reconciler.tierFor(ref, payload.PriceID()),
		Status:             uc.reconciler.status(ref, payload.Status, mapped, recognized),
		CustomerID:         payload.Customer,
		SubscriptionID:     payload.ID,
		PriceID:            payload.PriceID(),
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		TrialStart:         trialStart,
		TrialEnd:           trialEnd,
		CancelAtPeriodEnd:  payload.CancelAtPeriodEnd,
		CanceledAt:         payload.CanceledTime(),
	})
}

// SyncPolarSubscriptionUseCase handles subscription.created,
// subscription.updated and subscription.active.
type SyncPolarSubscriptionUseCase struct {
	reconciler *Reconciler
}

func NewSyncPolarSubscriptionUseCase(reconciler *Reconciler) *SyncPolarSubscriptionUseCase {
	return &SyncPolarSubscriptionUseCase{reconciler: reconciler}
}

func (uc *SyncPolarSubscriptionUseCase) Execute(ctx context.Context, payload *dto.PolarSubscription) (*SyncResult, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}
	ref := providerRef{
		Provider:       vo.ProviderPolar,
		OrganizationID: payload.OrganizationID(),
		SubscriptionID: payload.ID,
		CustomerID:     payload.CustomerID,
	}

	mapped, recognized := vo.MapPolarStatus(payload.Status)
	return uc.reconciler.apply(ctx, ref, subscription.ProviderState{
		Provider:           vo.ProviderPolar,
		Plan:               uc.reconciler.tierFor(ref, payload.ProductID),
		Status:             uc.reconciler.status(ref, payload.Status, mapped, recognized),
		CustomerID:         payload.CustomerID,
		SubscriptionID:     payload.ID,
		PriceID:            payload.ProductID,
		CurrentPeriodStart: utcPtr(payload.CurrentPeriodStart),
		CurrentPeriodEnd:   utcPtr(payload.CurrentPeriodEnd),
		CancelAtPeriodEnd:  payload.CancelAtPeriodEnd,
		CanceledAt:         utcPtr(payload.CanceledAt),
	})
}

// SyncPaystackSubscriptionUseCase handles subscription.create and
// subscription.not_renew.
type SyncPaystackSubscriptionUseCase struct {
	reconciler *Reconciler
}

func NewSyncPaystackSubscriptionUseCase(reconciler *Reconciler) *SyncPaystackSubscriptionUseCase {
	return &SyncPaystackSubscriptionUseCase{reconciler: reconciler}
}

func (uc *SyncPaystackSubscriptionUseCase) Execute(ctx context.Context, payload *dto.PaystackSubscription) (*SyncResult, error) {
	if err := utils.ValidateStruct(payload); err != nil {
		return nil, err
	}
	ref := providerRef{
		Provider:       vo.ProviderPaystack,
		OrganizationID: payload.OrganizationID(),
		SubscriptionID: payload.SubscriptionCode,
		CustomerID:     payload.Customer.CustomerCode,
	}

	mapped, cancelAtPeriodEnd, recognized := vo.MapPaystackStatus(payload.Status)
	periodStart, periodEnd := paystackPeriod(payload)
	return uc.reconciler.apply(ctx, ref, subscription.ProviderState{
		Provider:           vo.ProviderPaystack,
		Plan:               uc.reconciler.tierFor(ref, payload.Plan.PlanCode),
		Status:             uc.reconciler.status(ref, payload.Status, mapped, recognized),
		CustomerID:         payload.Customer.CustomerCode,
		SubscriptionID:     payload.SubscriptionCode,
		PriceID:            payload.Plan.PlanCode,
		CurrentPeriodStart: periodStart,
		CurrentPeriodEnd:   periodEnd,
		CancelAtPeriodEnd:  cancelAtPeriodEnd,
		CanceledAt:         utcPtr(payload.CancelledAt),
	})
}

// paystackPeriod derives the period from next_payment_date, the only
// boundary Paystack reports, and the plan interval.
func paystackPeriod(payload *dto.PaystackSubscription) (start, end *time.Time) {
	end = utcPtr(payload.NextPaymentDate)
	if end == nil {
		return nil, nil
	}
	interval, _ := vo.ParseInterval(payload.Plan.Interval)
	var s time.Time
	if interval == vo.IntervalAnnual {
		s = end.AddDate(-1, 0, 0)
	} else {
		s = end.AddDate(0, -1, 0)
	}
	return &s, end
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
