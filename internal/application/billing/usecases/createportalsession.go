package usecases

import (
	"context"

	"github.com/lexora-inc/lexora/internal/application/billing"
	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type CreatePortalSessionCommand struct {
	OrganizationID string
	// Provider defaults to the provider the organization last billed through.
	Provider vo.PaymentProvider
}

type PortalResult struct {
	Provider vo.PaymentProvider
	URL      string
}

// CreatePortalSessionUseCase opens the provider's self-service billing page.
type CreatePortalSessionUseCase struct {
	subscriptionRepo subscription.Repository
	gateways         *billing.Gateways
	returnURL        string
	logger           logger.Interface
}

func NewCreatePortalSessionUseCase(
	subscriptionRepo subscription.Repository,
	gateways *billing.Gateways,
	returnURL string,
	logger logger.Interface,
) *CreatePortalSessionUseCase {
	return &CreatePortalSessionUseCase{
		subscriptionRepo: subscriptionRepo,
		gateways:         gateways,
		returnURL:        returnURL,
		logger:           logger,
	}
}

func (uc *CreatePortalSessionUseCase) Execute(ctx context.Context, cmd CreatePortalSessionCommand) (*PortalResult, error) {
	if cmd.OrganizationID == "" {
		return nil, apperrors.NewValidationError("organization ID is required")
	}
	sub, err := uc.subscriptionRepo.GetByOrganizationID(ctx, cmd.OrganizationID)
	if err != nil {
		uc.logger.Errorw("failed to load subscription", "organization_id", cmd.OrganizationID, "error", err)
		return nil, apperrors.NewUnavailableError("failed to load subscription", err)
	}
	if sub == nil {
		return nil, apperrors.NewNotFoundError("organization has no billing account")
	}

	provider := cmd.Provider
	if provider == "" {
		provider = sub.PaymentProvider()
	}
	gw, err := uc.gateways.Get(provider)
	if err != nil {
		return nil, err
	}
	linkage := sub.Provider()
	customerID := linkage.CustomerID(gw.Provider())
	if customerID == "" {
		return nil, apperrors.NewNotFoundError("organization has no billing account with " + string(gw.Provider()))
	}

	session, err := gw.CreatePortalSession(ctx, paymentprovider.PortalRequest{
		CustomerID:     customerID,
		SubscriptionID: linkage.SubscriptionID(gw.Provider()),
		ReturnURL:      uc.returnURL,
	})
	if err != nil {
		uc.logger.Errorw("failed to create portal session",
			"provider", gw.Provider(),
			"organization_id", cmd.OrganizationID,
			"error", err,
		)
		return nil, upstreamErr(err)
	}
	return &PortalResult{Provider: gw.Provider(), URL: session.URL}, nil
}
