// Package paystack talks to the Paystack REST API. Every response is wrapped
// in a {status, message, data} envelope.
package paystack

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	vo "github.com/lexora-inc/lexora/internal/domain/subscription/valueobjects"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment"
	"github.com/lexora-inc/lexora/internal/shared/config"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type Gateway struct {
	client *payment.Client
}

func NewGateway(cfg config.PaystackConfig, billing config.BillingConfig, log logger.Interface) *Gateway {
	return &Gateway{
		client: payment.NewClient(payment.ClientOptions{
			Provider:   "paystack",
			BaseURL:    cfg.BaseURL,
			Token:      cfg.SecretKey,
			Timeout:    billing.RequestTimeout(),
			MaxRetries: billing.MaxRetries,
			MessageOf:  errorMessage,
		}, log),
	}
}

func (g *Gateway) Provider() vo.PaymentProvider {
	return vo.ProviderPaystack
}

type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

type customer struct {
	CustomerCode string `json:"customer_code"`
	Email        string `json:"email"`
}

type initializeBody struct {
	Email       string            `json:"email"`
	Amount      string            `json:"amount"`
	Plan        string            `json:"plan,omitempty"`
	CallbackURL string            `json:"callback_url,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type manageLink struct {
	Link string `json:"link"`
}

func (g *Gateway) do(ctx context.Context, req payment.Request, data any) error {
	env := envelope[json.RawMessage]{}
	if err := g.client.DoJSON(ctx, req, &env); err != nil {
		return err
	}
	if !env.Status {
		return &payment.ProviderError{
			Provider:   "paystack",
			Method:     req.Method,
			Path:       req.Path,
			StatusCode: http.StatusOK,
			Message:    env.Message,
		}
	}
	if data == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, data); err != nil {
		return fmt.Errorf("decode paystack %s data: %w", req.Path, err)
	}
	return nil
}

// FindCustomerByEmail maps Paystack's 404 for an unknown email to nil, nil.
func (g *Gateway) FindCustomerByEmail(ctx context.Context, email string) (*paymentprovider.Customer, error) {
	var out customer
	err := g.do(ctx, payment.Request{Method: http.MethodGet, Path: "/customer/" + url.PathEscape(email)}, &out)
	if err != nil {
		var perr *payment.ProviderError
		if errors.As(err, &perr) && perr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, err
	}
	if out.CustomerCode == "" {
		return nil, nil
	}
	return &paymentprovider.Customer{ID: out.CustomerCode, Email: out.Email}, nil
}

func (g *Gateway) CreateCustomer(ctx context.Context, req paymentprovider.CreateCustomerRequest) (*paymentprovider.Customer, error) {
	body := map[string]any{
		"email":    req.Email,
		"metadata": map[string]string{paymentprovider.MetadataOrganizationID: req.OrganizationID},
	}
	if req.Name != "" {
		body["first_name"] = req.Name
	}

	var out customer
	if err := g.do(ctx, payment.Request{Method: http.MethodPost, Path: "/customer", JSON: body}, &out); err != nil {
		return nil, err
	}
	return &paymentprovider.Customer{ID: out.CustomerCode, Email: out.Email}, nil
}

// CreateCheckout initializes a transaction against a plan code. Paystack
// requires an amount even though the plan overrides it.
func (g *Gateway) CreateCheckout(ctx context.Context, req paymentprovider.CheckoutRequest) (*paymentprovider.Session, error) {
	if req.Email == "" {
		return nil, errors.New("paystack checkout requires an email")
	}
	body := initializeBody{
		Email:       req.Email,
		Amount:      fmt.Sprintf("%d", req.AmountMinor),
		Plan:        req.PriceID,
		CallbackURL: req.SuccessURL,
		Metadata:    map[string]string{paymentprovider.MetadataOrganizationID: req.OrganizationID},
	}

	var out initializeData
	if err := g.do(ctx, payment.Request{Method: http.MethodPost, Path: "/transaction/initialize", JSON: body}, &out); err != nil {
		return nil, err
	}
	if out.AuthorizationURL == "" {
		return nil, fmt.Errorf("paystack transaction %s has no authorization url", out.Reference)
	}
	return &paymentprovider.Session{ID: out.Reference, URL: out.AuthorizationURL}, nil
}

// CreatePortalSession returns the hosted card-management page of a
// subscription; Paystack has no customer-wide portal.
func (g *Gateway) CreatePortalSession(ctx context.Context, req paymentprovider.PortalRequest) (*paymentprovider.Session, error) {
	if req.SubscriptionID == "" {
		return nil, errors.New("paystack portal requires a subscription code")
	}
	var out manageLink
	path := "/subscription/" + url.PathEscape(req.SubscriptionID) + "/manage/link"
	if err := g.do(ctx, payment.Request{Method: http.MethodGet, Path: path}, &out); err != nil {
		return nil, err
	}
	return &paymentprovider.Session{ID: req.SubscriptionID, URL: out.Link}, nil
}

func errorMessage(body []byte) string {
	var env envelope[json.RawMessage]
	if json.Unmarshal(body, &env) != nil {
		return ""
	}
	return env.Message
}
