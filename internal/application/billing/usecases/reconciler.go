package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lexora-inc/lexora/internal/application/billing"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/goroutine"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

const notifyTimeout = 30 * time.Second

// SyncResult is the committed state after a webhook was reconciled.
type SyncResult struct {
	OrganizationID string                `json:"organizationId"`
	PreviousPlan   plan.Tier             `json:"previousPlan"`
	Plan           plan.Tier             `json:"plan"`
	Status         vo.SubscriptionStatus `json:"status"`
	// Ignored is set when the event referred to a subscription the
	// organization no longer bills through.
	Ignored bool `json:"ignored,omitempty"`
}

// providerRef identifies the organization a provider event belongs to.
// Metadata wins; the stored provider linkage is the fallback.
type providerRef struct {
	Provider       vo.PaymentProvider
	OrganizationID string
	SubscriptionID string
	CustomerID     string
}

// Reconciler applies provider state to the subscription row under a row
// lock and fans out cache invalidation and notifications afterwards.
type Reconciler struct {
	subscriptionRepo subscription.Repository
	txManager        TransactionRunner
	prices           *billing.PriceBook
	invalidator      EntitlementInvalidator
	notifier         BillingNotifier // Optional
	logger           logger.Interface
}

func NewReconciler(
	subscriptionRepo subscription.Repository,
	txManager TransactionRunner,
	prices *billing.PriceBook,
	invalidator EntitlementInvalidator,
	logger logger.Interface,
) *Reconciler {
	return &Reconciler{
		subscriptionRepo: subscriptionRepo,
		txManager:        txManager,
		prices:           prices,
		invalidator:      invalidator,
		logger:           logger,
	}
}

// SetNotifier sets the billing notifier (optional dependency injection)
func (r *Reconciler) SetNotifier(notifier BillingNotifier) {
	r.notifier = notifier
}

// tierFor resolves a provider price. Unknown identifiers fall back to FREE.
func (r *Reconciler) tierFor(ref providerRef, priceID string) plan.Tier {
	price, ok := r.prices.Lookup(ref.Provider, priceID)
	if !ok {
		r.logger.Warnw("unknown provider price, falling back to FREE",
			"provider", ref.Provider,
			"price_id", priceID,
			"organization_id", ref.OrganizationID,
			"subscription_id", ref.SubscriptionID,
		)
		return plan.TierFree
	}
	return price.Tier
}

// status maps a raw provider status and audits the fail-open fallback.
func (r *Reconciler) status(ref providerRef, raw string, mapped vo.SubscriptionStatus, recognized bool) vo.SubscriptionStatus {
	if !recognized {
		r.logger.Warnw("unmapped provider status, treating as active",
			"provider", ref.Provider,
			"raw_status", raw,
			"organization_id", ref.OrganizationID,
			"subscription_id", ref.SubscriptionID,
		)
	}
	return mapped
}

func (r *Reconciler) locate(ctx context.Context, ref providerRef) (string, error) {
	if ref.OrganizationID != "" {
		return ref.OrganizationID, nil
	}
	if ref.SubscriptionID != "" {
		sub, err := r.subscriptionRepo.GetByProviderSubscriptionID(ctx, ref.Provider, ref.SubscriptionID)
		if err != nil {
			return "", apperrors.NewUnavailableError("failed to look up subscription", err)
		}
		if sub != nil {
			return sub.OrganizationID(), nil
		}
	}
	if ref.CustomerID != "" {
		sub, err := r.subscriptionRepo.GetByProviderCustomerID(ctx, ref.Provider, ref.CustomerID)
		if err != nil {
			return "", apperrors.NewUnavailableError("failed to look up subscription", err)
		}
		if sub != nil {
			return sub.OrganizationID(), nil
		}
	}
	return "", apperrors.NewNotFoundError(
		"no organization matches the provider subscription",
		fmt.Sprintf("provider=%s subscription=%s customer=%s", ref.Provider, ref.SubscriptionID, ref.CustomerID),
	)
}

// mutate runs fn against the locked row. fn reports whether it changed
// anything; unchanged rows are not written.
func (r *Reconciler) mutate(ctx context.Context, ref providerRef, fn func(sub *subscription.Subscription) (bool, error)) (*SyncResult, error) {
	organizationID, err := r.locate(ctx, ref)
	if err != nil {
		r.logger.Warnw("failed to locate subscription for provider event",
			"provider", ref.Provider,
			"subscription_id", ref.SubscriptionID,
			"customer_id", ref.CustomerID,
			"error", err,
		)
		return nil, err
	}

	result := &SyncResult{OrganizationID: organizationID}
	err = r.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := r.subscriptionRepo.LockByOrganizationID(txCtx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		result.PreviousPlan = sub.Plan().Canonical()

		changed, err := fn(sub)
		if err != nil {
			return err
		}
		result.Plan = sub.Plan()
		result.Status = sub.Status()
		if !changed {
			result.Ignored = true
			return nil
		}
		if err := r.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		r.logger.Errorw("failed to reconcile provider subscription",
			"provider", ref.Provider,
			"organization_id", organizationID,
			"subscription_id", ref.SubscriptionID,
			"error", err,
		)
		if errors.Is(err, subscription.ErrVersionConflict) {
			return nil, apperrors.NewConflictError("subscription was modified concurrently, retry the delivery")
		}
		if apperrors.IsAppError(err) {
			return nil, err
		}
		if errors.Is(err, subscription.ErrInvalidStatus) || errors.Is(err, subscription.ErrInvalidProvider) {
			return nil, apperrors.NewValidationError("invalid provider subscription state", err.Error())
		}
		return nil, apperrors.NewUnavailableError("failed to reconcile subscription", err)
	}

	if !result.Ignored {
		r.invalidator.Invalidate(ctx, organizationID)
	}
	return result, nil
}

// apply overwrites the row with state. A CANCELED status is handled as a
// cancellation. Late events for a subscription the organization has since
// replaced at another provider are acknowledged without effect.
func (r *Reconciler) apply(ctx context.Context, ref providerRef, state subscription.ProviderState) (*SyncResult, error) {
	if state.Status == vo.StatusCanceled {
		at := time.Now().UTC()
		if state.CanceledAt != nil {
			at = *state.CanceledAt
		}
		return r.cancel(ctx, ref, at)
	}

	result, err := r.mutate(ctx, ref, func(sub *subscription.Subscription) (bool, error) {
		if replacedAtProvider(sub, ref) {
			return false, nil
		}
		return true, sub.ApplyProviderState(state)
	})
	if err != nil {
		return nil, err
	}
	if result.Ignored {
		r.logger.Infow("ignoring update of superseded subscription",
			"provider", ref.Provider,
			"organization_id", result.OrganizationID,
			"subscription_id", ref.SubscriptionID,
			"status", state.Status,
		)
		return result, nil
	}

	r.logger.Infow("provider subscription reconciled",
		"provider", ref.Provider,
		"organization_id", result.OrganizationID,
		"previous_plan", result.PreviousPlan,
		"plan", result.Plan,
		"status", result.Status,
	)

	if result.PreviousPlan != result.Plan {
		r.notify("billing-notify-plan-changed", func(ctx context.Context) error {
			return r.notifier.NotifyPlanChanged(ctx, PlanChangedNotice{
				OrganizationID: result.OrganizationID,
				Provider:       ref.Provider,
				PreviousPlan:   result.PreviousPlan,
				Plan:           result.Plan,
				Status:         result.Status,
				PeriodEnd:      state.CurrentPeriodEnd,
			})
		})
	}
	return result, nil
}

// cancel drops the organization to FREE. A cancellation for a subscription
// other than the one currently linked is acknowledged without effect, so an
// organization that switched providers keeps its new plan.
func (r *Reconciler) cancel(ctx context.Context, ref providerRef, at time.Time) (*SyncResult, error) {
	result, err := r.mutate(ctx, ref, func(sub *subscription.Subscription) (bool, error) {
		if supersededByProvider(sub, ref) {
			return false, nil
		}
		if linked := sub.Provider().SubscriptionID(ref.Provider); linked != "" && ref.SubscriptionID != "" && linked != ref.SubscriptionID {
			return false, nil
		}
		sub.Cancel(at)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	if result.Ignored {
		r.logger.Infow("ignoring cancellation of superseded subscription",
			"provider", ref.Provider,
			"organization_id", result.OrganizationID,
			"subscription_id", ref.SubscriptionID,
		)
		return result, nil
	}

	r.logger.Infow("provider subscription canceled",
		"provider", ref.Provider,
		"organization_id", result.OrganizationID,
		"previous_plan", result.PreviousPlan,
	)

	r.notify("billing-notify-canceled", func(ctx context.Context) error {
		return r.notifier.NotifySubscriptionCanceled(ctx, SubscriptionCanceledNotice{
			OrganizationID: result.OrganizationID,
			Provider:       ref.Provider,
			PreviousPlan:   result.PreviousPlan,
			CanceledAt:     at.UTC(),
		})
	})
	return result, nil
}

// supersededByProvider reports whether the row is linked to a subscription
// at a provider other than the one the event came from.
func supersededByProvider(sub *subscription.Subscription, ref providerRef) bool {
	active := sub.PaymentProvider()
	return active != ref.Provider && sub.Provider().SubscriptionID(active) != ""
}

// replacedAtProvider reports whether ref names the subscription already
// linked for its provider while a live subscription at another provider
// holds the row. A new subscription at ref's provider is not replaced.
func replacedAtProvider(sub *subscription.Subscription, ref providerRef) bool {
	if !supersededByProvider(sub, ref) || !sub.GrantsPaidAccess() || ref.SubscriptionID == "" {
		return false
	}
	return sub.Provider().SubscriptionID(ref.Provider) == ref.SubscriptionID
}

func (r *Reconciler) notify(name string, send func(ctx context.Context) error) {
	if r.notifier == nil {
		return
	}
	goroutine.SafeGo(r.logger, name, func() {
		notifyCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := send(notifyCtx); err != nil {
			r.logger.Warnw("failed to send billing notification", "notification", name, "error", err)
		}
	})
}
