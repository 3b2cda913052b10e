// Package paymentprovider declares the outbound port to a payment provider.
package paymentprovider

import (
	"context"

	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
)

// Gateway creates customers and hosted billing pages at one provider.
type Gateway interface {
	Provider() vo.PaymentProvider
	// FindCustomerByEmail returns nil, nil when the provider knows no such customer.
	FindCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	CreateCustomer(ctx context.Context, req CreateCustomerRequest) (*Customer, error)
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Session, error)
	CreatePortalSession(ctx context.Context, req PortalRequest) (*Session, error)
}

type Customer struct {
	ID    string
	Email string
}

type CreateCustomerRequest struct {
	OrganizationID string
	Email          string
	Name           string
}

// CheckoutRequest starts a hosted checkout for one price. AmountMinor is
// required by providers that charge a transaction before the plan attaches.
type CheckoutRequest struct {
	OrganizationID string
	CustomerID     string
	Email          string
	PriceID        string
	AmountMinor    int64
	SuccessURL     string
	CancelURL      string
}

type PortalRequest struct {
	CustomerID     string
	SubscriptionID string
	ReturnURL      string
}

// Session is a hosted page the user is redirected to.
type Session struct {
	ID  string
	URL string
}

// MetadataOrganizationID is the metadata key every provider object carries
// so webhooks can be routed back to an organization.
const MetadataOrganizationID = "organizationId"
