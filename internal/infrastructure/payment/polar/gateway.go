// Package polar talks to the Polar v1 JSON API.
package polar

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment"
	"github.com/lexora-inc/lexora/internal/shared/config"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type Gateway struct {
	client *payment.Client
}

func NewGateway(cfg config.PolarConfig, billing config.BillingConfig, log logger.Interface) *Gateway {
	return &Gateway{
		client: payment.NewClient(payment.ClientOptions{
			Provider:   "polar",
			BaseURL:    cfg.BaseURL,
			Token:      cfg.AccessToken,
			Timeout:    billing.RequestTimeout(),
			MaxRetries: billing.MaxRetries,
			MessageOf:  errorMessage,
		}, log),
	}
}

func (g *Gateway) Provider() vo.PaymentProvider {
	return vo.ProviderPolar
}

type customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type customerList struct {
	Items []customer `json:"items"`
}

type createCustomerBody struct {
	Email      string            `json:"email"`
	Name       string            `json:"name,omitempty"`
	ExternalID string            `json:"external_id,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type createCheckoutBody struct {
	Products      []string          `json:"products"`
	CustomerID    string            `json:"customer_id,omitempty"`
	CustomerEmail string            `json:"customer_email,omitempty"`
	SuccessURL    string            `json:"success_url,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type customerSession struct {
	ID                string `json:"id"`
	CustomerPortalURL string `json:"customer_portal_url"`
}

// FindCustomerByEmail is the fallback that keeps customer creation
// idempotent when the stored customer ID was lost.
func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*paymentprovider.Customer, error) {
	var out customerList
	err := g.client.DoJSON(ctx, payment.Request{
		Method: http.MethodGet,
		Path:   "/v1/customers/",
		Query:  map[string]string{"email": email, "limit": "1"},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	return &paymentprovider.Customer{ID: out.Items[0].ID, Email: out.Items[0].Email}, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, req paymentprovider.CreateCustomerRequest) (*paymentprovider.Customer, error) {
	var out customer
	err := g.client.DoJSON(ctx, payment.Request{
		Method: http.MethodPost,
		Path:   "/v1/customers/",
		JSON: createCustomerBody{
			Email:      req.Email,
			Name:       req.Name,
			ExternalID: req.OrganizationID,
			Metadata:   map[string]string{paymentprovider.MetadataOrganizationID: req.OrganizationID},
		},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &paymentprovider.Customer{ID: out.ID, Email: out.Email}, nil
}

func (g *Gateway) CreateCheckout(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.Session, error) {
	body := createCheckoutBody{
		Products:   []string{req.PriceID},
		CustomerID: req.CustomerID,
		SuccessURL: req.SuccessURL,
		Metadata:   map[string]string{paymentprovider.MetadataOrganizationID: req.OrganizationID},
	}
	if req.CustomerID == "" {
		body.CustomerEmail = req.Email
	}

	var out checkout
	if err := g.client.DoJSON(ctx, payment.Request{Method: http.MethodPost, Path: "/v1/checkouts/", JSON: body}, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, fmt.Errorf("polar checkout %s has no url", out.ID)
	}
	return &paymentprovider.Session{ID: out.ID, URL: out.URL}, nil
}

func (g *Gateway) CreatePortalSession(ctx context.Context, req paymentprovider.PortalRequest) (*paymentprovider.Session, error) {
	var out customerSession
	err := g.client.DoJSON(ctx, payment.Request{
		Method: http.MethodPost,
		Path:   "/v1/customer-sessions/",
		JSON:   map[string]string{"customer_id": req.CustomerID},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &paymentprovider.Session{ID: out.ID, URL: out.CustomerPortalURL}, nil
}

func errorMessage(body []byte) string {
	var env struct {
		Error  string          `json:"error"`
		Detail json.RawMessage `json:"detail"`
	}
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	var detail string
	if json.Unmarshal(env.Detail, &detail) == nil && detail != "" {
		return detail
	}
	return env.Error
}
