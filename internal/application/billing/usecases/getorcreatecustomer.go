package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/lexora-inc/lexora/internal/application/billing"
	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	"github.com/lexora-inc/lexora/internal/domain/subscription"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

const providerRetryMessage = "payment provider request failed, please try again"

type GetOrCreateCustomerCommand struct {
	OrganizationID string
	Email          string
	Name           string
	Provider       vo.PaymentProvider
}

type CustomerResult struct {
	Provider   vo.PaymentProvider
	CustomerID string
	Created    bool
}

// GetOrCreateCustomerUseCase returns the provider customer of an
// organization. The stored ID is used first, then an email lookup at the
// provider, and only then a new customer is created. Linking happens under
// the row lock, so a concurrent caller that linked first wins.
type GetOrCreateCustomerUseCase struct {
	subscriptionRepo subscription.Repository
	txManager        TransactionRunner
	gateways         *billing.Gateways
	logger           logger.Interface
}

func NewGetOrCreateCustomerUseCase(
	subscriptionRepo subscription.Repository,
	txManager TransactionRunner,
	gateways *billing.Gateways,
	logger logger.Interface,
) *GetOrCreateCustomerUseCase {
	return &GetOrCreateCustomerUseCase{
		subscriptionRepo: subscriptionRepo,
		txManager:        txManager,
		gateways:         gateways,
		logger:           logger,
	}
}

func (uc *GetOrCreateCustomerUseCase) Execute(ctx context.Context, cmd GetOrCreateCustomerCommand) (*CustomerResult, error) {
	if cmd.OrganizationID == "" {
		return nil, apperrors.NewValidationError("organization ID is required")
	}
	gw, err := uc.gateways.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}
	provider := gw.Provider()

	sub, err := uc.subscriptionRepo.GetOrCreate(ctx, cmd.OrganizationID)
	if err != nil {
		uc.logger.Errorw("failed to load subscription", "organization_id", cmd.OrganizationID, "error", err)
		return nil, apperrors.NewUnavailableError("failed to load subscription", err)
	}
	if id := sub.Provider().CustomerID(provider); id != "" {
		return &CustomerResult{Provider: provider, CustomerID: id}, nil
	}

	if cmd.Email == "" {
		return nil, apperrors.NewValidationError("email is required to create a billing customer")
	}

	customer, created, err := uc.findOrCreate(ctx, gw, cmd)
	if err != nil {
		uc.logger.Errorw("failed to get or create provider customer",
			"provider", provider,
			"organization_id", cmd.OrganizationID,
			"error", err,
		)
		return nil, upstreamErr(err)
	}

	linked, err := uc.link(ctx, cmd.OrganizationID, provider, customer.ID)
	if err != nil {
		uc.logger.Errorw("failed to link provider customer",
			"provider", provider,
			"organization_id", cmd.OrganizationID,
			"customer_id", customer.ID,
			"error", err,
		)
		return nil, err
	}
	if linked != customer.ID {
		uc.logger.Warnw("concurrent customer creation, keeping the first linked customer",
			"provider", provider,
			"organization_id", cmd.OrganizationID,
			"kept_customer_id", linked,
			"orphan_customer_id", customer.ID,
		)
		return &CustomerResult{Provider: provider, CustomerID: linked}, nil
	}

	uc.logger.Infow("provider customer linked",
		"provider", provider,
		"organization_id", cmd.OrganizationID,
		"customer_id", customer.ID,
		"created", created,
	)
	return &CustomerResult{Provider: provider, CustomerID: customer.ID, Created: created}, nil
}

func (uc *GetOrCreateCustomerUseCase) findOrCreate(ctx context.Context, gw paymentprovider.Gateway, cmd GetOrCreateCustomerCommand) (*paymentprovider.Customer, bool, error) {
	found, err := gw.FindCustomerByEmail(ctx, cmd.Email)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up customer by email: %w", err)
	}
	if found != nil {
		return found, false, nil
	}
	created, err := gw.CreateCustomer(ctx, paymentprovider.CreateCustomerRequest{
		OrganizationID: cmd.OrganizationID,
		Email:          cmd.Email,
		Name:           cmd.Name,
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to create customer: %w", err)
	}
	return created, true, nil
}

// link stores customerID unless another caller linked a customer first and
// returns the ID that ends up stored.
func (uc *GetOrCreateCustomerUseCase) link(ctx context.Context, organizationID string, provider vo.PaymentProvider, customerID string) (string, error) {
	var stored string
	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		sub, err := uc.subscriptionRepo.LockByOrganizationID(txCtx, organizationID)
		if err != nil {
			return fmt.Errorf("failed to lock subscription: %w", err)
		}
		if existing := sub.Provider().CustomerID(provider); existing != "" {
			stored = existing
			return nil
		}
		if err := sub.LinkCustomer(provider, customerID); err != nil {
			return err
		}
		if err := uc.subscriptionRepo.Update(txCtx, sub); err != nil {
			return fmt.Errorf("failed to update subscription: %w", err)
		}
		stored = customerID
		return nil
	})
	if err != nil {
		if errors.Is(err, subscription.ErrVersionConflict) {
			return "", apperrors.NewConflictError("subscription was modified concurrently")
		}
		return "", apperrors.NewUnavailableError("failed to link billing customer", err)
	}
	return stored, nil
}

// upstreamErr keeps provider failures distinct from entitlement denials.
func upstreamErr(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	return apperrors.NewUpstreamError(providerRetryMessage, err)
}
