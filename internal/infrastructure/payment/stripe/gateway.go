// Package stripe talks to the Stripe v1 REST API with form-encoded bodies.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment"
	"github.com/lexora-inc/lexora/internal/shared/config"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type Gateway struct {
	client *payment.Client
}

func NewGateway(cfg config.StripeConfig, billing config.BillingConfig, log logger.Interface) *Gateway {
	return &Gateway{
		client: payment.NewClient(payment.ClientOptions{
			Provider:   "stripe",
			BaseURL:    cfg.BaseURL,
			Token:      cfg.SecretKey,
			Timeout:    billing.RequestTimeout(),
			MaxRetries: billing.MaxRetries,
			MessageOf:  errorMessage,
			Idempotent: true,
		}, log),
	}
}

func (g *Gateway) Provider() vo.PaymentProvider {
	return vo.ProviderStripe
}

type customerObject struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type listResponse struct {
	Data []customerObject `json:"data"`
}

type sessionObject struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*paymentprovider.Customer, error) {
	var out listResponse
	err := g.client.DoJSON(ctx, payment.Request{
		Method: http.MethodGet,
		Path:   "/v1/customers",
		Query:  map[string]string{"email": email, "limit": "1"},
	}, &out)
	if err != nil {
		return nil, err
	}
	if len(out.Data) == 0 {
		return nil, nil
	}
	return &paymentprovider.Customer{ID: out.Data[0].ID, Email: out.Data[0].Email}, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, req paymentprovider.CreateCustomerRequest) (*paymentprovider.Customer, error) {
	form := url.Values{}
	form.Set("email", req.Email)
	if req.Name != "" {
		form.Set("name", req.Name)
	}
	form.Set(metadataKey(paymentprovider.MetadataOrganizationID), req.OrganizationID)

	var out customerObject
	if err := g.client.DoJSON(ctx, payment.Request{Method: http.MethodPost, Path: "/v1/customers", Form: form}, &out); err != nil {
		return nil, err
	}
	return &paymentprovider.Customer{ID: out.ID, Email: out.Email}, nil
}

func (g *Gateway) CreateCheckout(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.Session, error) {
	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", req.PriceID)
	form.Set("line_items[0][quantity]", strconv.Itoa(1))
	form.Set("success_url", req.SuccessURL)
	form.Set("cancel_url", req.CancelURL)
	form.Set("client_reference_id", req.OrganizationID)
	form.Set(metadataKey(paymentprovider.MetadataOrganizationID), req.OrganizationID)
	form.Set("subscription_data[metadata]["+paymentprovider.MetadataOrganizationID+"]", req.OrganizationID)
	if req.CustomerID != "" {
		form.Set("customer", req.CustomerID)
	} else if req.Email != "" {
		form.Set("customer_email", req.Email)
	}

	var out sessionObject
	if err := g.client.DoJSON(ctx, payment.Request{Method: http.MethodPost, Path: "/v1/checkout/sessions", Form: form}, &out); err != nil {
		return nil, err
	}
	if out.URL == "" {
		return nil, fmt.Errorf("stripe checkout session %s has no url", out.ID)
	}
	return &paymentprovider.Session{ID: out.ID, URL: out.URL}, nil
}

func (g *Gateway) CreatePortalSession(ctx context.Context, req paymentprovider.PortalRequest) (*paymentprovider.Session, error) {
	form := url.Values{}
	form.Set("customer", req.CustomerID)
	if req.ReturnURL != "" {
		form.Set("return_url", req.ReturnURL)
	}

	var out sessionObject
	if err := g.client.DoJSON(ctx, payment.Request{Method: http.MethodPost, Path: "/v1/billing_portal/sessions", Form: form}, &out); err != nil {
		return nil, err
	}
	return &paymentprovider.Session{ID: out.ID, URL: out.URL}, nil
}

func metadataKey(k string) string {
	return "metadata[" + k + "]"
}

func errorMessage(body []byte) string {
	var env struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	return env.Error.Message
}
