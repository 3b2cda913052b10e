package usecases

import (
	"context"
	"time"

	"github.com/lexora-inc/lexora/internal/application/billing/dto"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
)

// CancelSubscriptionCommand identifies the canceled provider subscription.
// At least one of the identifiers must be set.
type CancelSubscriptionCommand struct {
	Provider       vo.PaymentProvider
	OrganizationID string
	SubscriptionID string
	CustomerID     string
	CanceledAt     *time.Time
}

// HandleSubscriptionCanceledUseCase resets an organization to FREE when its
// provider subscription is canceled or deleted.
type HandleSubscriptionCanceledUseCase struct {
	reconciler *Reconciler
	now        func() time.Time
}

func NewHandleSubscriptionCanceledUseCase(reconciler *Reconciler) *HandleSubscriptionCanceledUseCase {
	return &HandleSubscriptionCanceledUseCase{reconciler: reconciler, now: time.Now}
}

func (uc *HandleSubscriptionCanceledUseCase) Execute(ctx context.Context, cmd CancelSubscriptionCommand) (*SyncResult, error) {
	if !cmd.Provider.IsValid() {
		return nil, apperrors.NewValidationError("invalid payment provider", string(cmd.Provider))
	}
	if cmd.OrganizationID == "" && cmd.SubscriptionID == "" && cmd.CustomerID == "" {
		return nil, apperrors.NewValidationError("canceled subscription carries no identifier")
	}

	at := uc.now().UTC()
	if cmd.CanceledAt != nil {
		at = cmd.CanceledAt.UTC()
	}
	return uc.reconciler.cancel(ctx, providerRef{
		Provider:       cmd.Provider,
		OrganizationID: cmd.OrganizationID,
		SubscriptionID: cmd.SubscriptionID,
		CustomerID:     cmd.CustomerID,
	}, at)
}

// CancelCommandFromStripe builds the command for customer.subscription.deleted.
func CancelCommandFromStripe(payload *dto.StripeSubscription) CancelSubscriptionCommand {
	return CancelSubscriptionCommand{
		Provider:       vo.ProviderStripe,
		OrganizationID: payload.OrganizationID(),
		SubscriptionID: payload.ID,
		CustomerID:     payload.Customer,
		CanceledAt:     payload.CanceledTime(),
	}
}

// CancelCommandFromPolar builds the command for subscription.canceled and
// subscription.revoked. Revocation carries ended_at rather than canceled_at.
func CancelCommandFromPolar(payload *dto.PolarSubscription) CancelSubscriptionCommand {
	at := payload.CanceledAt
	if at == nil {
		at = payload.EndedAt
	}
	return CancelSubscriptionCommand{
		Provider:       vo.ProviderPolar,
		OrganizationID: payload.OrganizationID(),
		SubscriptionID: payload.ID,
		CustomerID:     payload.CustomerID,
		CanceledAt:     at,
	}
}

// CancelCommandFromPaystack builds the command for subscription.disable.
func CancelCommandFromPaystack(payload *dto.PaystackSubscription) CancelSubscriptionCommand {
	return CancelSubscriptionCommand{
		Provider:       vo.ProviderPaystack,
		OrganizationID: payload.OrganizationID(),
		SubscriptionID: payload.SubscriptionCode,
		CustomerID:     payload.Customer.CustomerCode,
		CanceledAt:     payload.CancelledAt,
	}
}
