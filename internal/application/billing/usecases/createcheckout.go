package usecases

import (
	"context"
	"fmt"

	"github.com/lexora-inc/lexora/internal/application/billing"
	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	"github.com/lexora-inc/lexora/internal/domain/plan"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type CreateCheckoutCommand struct {
	OrganizationID string
	Email          string
	Name           string
	Plan           string
	Interval       string
	Provider       vo.PaymentProvider
}

type CheckoutResult struct {
	Provider  vo.PaymentProvider
	SessionID string
	URL       string
}

type CheckoutURLs struct {
	SuccessURL string
	CancelURL  string
}

// CreateCheckoutUseCase starts a hosted checkout for a paid tier.
type CreateCheckoutUseCase struct {
	gateways   *billing.Gateways
	prices     *billing.PriceBook
	customerUC *GetOrCreateCustomerUseCase
	urls       CheckoutURLs
	logger     logger.Interface
}

func NewCreateCheckoutUseCase(
	gateways *billing.Gateways,
	prices *billing.PriceBook,
	customerUC *GetOrCreateCustomerUseCase,
	urls CheckoutURLs,
	logger logger.Interface,
) *CreateCheckoutUseCase {
	return &CreateCheckoutUseCase{
		gateways:   gateways,
		prices:     prices,
		customerUC: customerUC,
		urls:       urls,
		logger:     logger,
	}
}

func (uc *CreateCheckoutUseCase) Execute(ctx context.Context, cmd CreateCheckoutCommand) (*CheckoutResult, error) {
	tier, ok := plan.ParseTier(cmd.Plan)
	if !ok {
		return nil, apperrors.NewValidationError("unknown plan", cmd.Plan)
	}
	def := plan.Get(tier)
	if tier == plan.TierFree {
		return nil, apperrors.NewValidationError("the FREE plan cannot be purchased")
	}
	if def.IsCustomPriced() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("the %s plan is sold by contract, contact sales", tier.DisplayName()))
	}

	interval := vo.IntervalMonthly
	if cmd.Interval != "" {
		if interval, ok = vo.ParseInterval(cmd.Interval); !ok {
			return nil, apperrors.NewValidationError("unknown billing interval", cmd.Interval)
		}
	}

	gw, err := uc.gateways.Get(cmd.Provider)
	if err != nil {
		return nil, err
	}
	priceID, ok := uc.prices.PriceFor(gw.Provider(), tier, interval)
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("the %s plan is not sold %s through %s", tier.DisplayName(), interval, gw.Provider()),
		)
	}

	customer, err := uc.customerUC.Execute(ctx, GetOrCreateCustomerCommand{
		OrganizationID: cmd.OrganizationID,
		Email:          cmd.Email,
		Name:           cmd.Name,
		Provider:       gw.Provider(),
	})
	if err != nil {
		return nil, err
	}

	amount := def.MonthlyPrice
	if interval == vo.IntervalAnnual {
		amount = def.AnnualPrice
	}
	req := paymentprovider.CheckoutRequest{
		OrganizationID: cmd.OrganizationID,
		CustomerID:     customer.CustomerID,
		Email:          cmd.Email,
		PriceID:        priceID,
		SuccessURL:     uc.urls.SuccessURL,
		CancelURL:      uc.urls.CancelURL,
	}
	if amount != nil {
		req.AmountMinor = *amount
	}

	session, err := gw.CreateCheckout(ctx, req)
	if err != nil {
		uc.logger.Errorw("failed to create checkout session",
			"provider", gw.Provider(),
			"organization_id", cmd.OrganizationID,
			"plan", tier,
			"interval", interval,
			"error", err,
		)
		return nil, upstreamErr(err)
	}

	uc.logger.Infow("checkout session created",
		"provider", gw.Provider(),
		"organization_id", cmd.OrganizationID,
		"plan", tier,
		"interval", interval,
		"session_id", session.ID,
	)
	return &CheckoutResult{Provider: gw.Provider(), SessionID: session.ID, URL: session.URL}, nil
}
