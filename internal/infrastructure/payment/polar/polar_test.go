package polar

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	"github.com/lexora-inc/lexora/internal/shared/config"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	g := NewGateway(
		config.PolarConfig{AccessToken: "polar_oat_1", BaseURL: srv.URL},
		config.BillingConfig{MaxRetries: -1},
		logger.NewNop(),
	)
	return g
}

func TestCreateCheckout(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkouts/", r.URL.Path)
		assert.Equal(t, "Bearer polar_oat_1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body createCheckoutBody
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"prod_pro"}, body.Products)
		assert.Equal(t, "lawyer@firm.law", body.CustomerEmail)
		assert.Equal(t, "org_1", body.Metadata[paymentprovider.MetadataOrganizationID])

		_, _ = w.Write([]byte(`{"id":"co_1","url":"https://polar.sh/checkout/co_1"}`))
	})

	sess, err := g.CreateCheckout(context.Background(), paymentprovider.CheckoutRequest{
		OrganizationID: "org_1",
		Email:          "lawyer@firm.law",
		PriceID:        "prod_pro",
		SuccessURL:     "https://app/ok",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://polar.sh/checkout/co_1", sess.URL)
}

func TestCustomers(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			assert.Equal(t, "lawyer@firm.law", r.URL.Query().Get("email"))
			_, _ = w.Write([]byte(`{"items":[{"id":"cust_1","email":"lawyer@firm.law"}]}`))
		case http.MethodPost:
			var body createCustomerBody
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "org_2", body.ExternalID)
			_, _ = w.Write([]byte(`{"id":"cust_2","email":"` + body.Email + `"}`))
		}
	})
	ctx := context.Background()

	found, err := g.FindCustomerByEmail(ctx, "lawyer@firm.law")
	require.NoError(t, err)
	assert.Equal(t, "cust_1", found.ID)

	created, err := g.CreateCustomer(ctx, paymentprovider.CreateCustomerRequest{OrganizationID: "org_2", Email: "new@firm.law"})
	require.NoError(t, err)
	assert.Equal(t, "cust_2", created.ID)
}

func TestPortalSession(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customer-sessions/", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"cs_1","customer_portal_url":"https://polar.sh/portal/abc"}`))
	})
	sess, err := g.CreatePortalSession(context.Background(), paymentprovider.PortalRequest{CustomerID: "cust_1"})
	require.NoError(t, err)
	assert.Equal(t, "https://polar.sh/portal/abc", sess.URL)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "Not found", errorMessage([]byte(`{"detail":"Not found"}`)))
	assert.Equal(t, "RequestValidationError", errorMessage([]byte(`{"error":"RequestValidationError","detail":[{"loc":["body"]}]}`)))
	assert.Empty(t, errorMessage([]byte(`<html>`)))
}

func TestWebhookVerifier(t *testing.T) {
	now := time.Unix(1_760_000_000, 0)
	payload := []byte(`{"type":"subscription.updated","data":{}}`)
	ts := strconv.FormatInt(now.Unix(), 10)

	for _, secret := range []string{"polar_whs_plain", "whsec_" + base64.StdEncoding.EncodeToString([]byte("raw-key"))} {
		v := NewWebhookVerifier(secret)
		v.now = func() time.Time { return now }

		sig := SignatureHeader(secret, "msg_1", now, payload)
		assert.NoError(t, v.Verify(payload, "msg_1", ts, sig))
		assert.NoError(t, v.Verify(payload, "msg_1", ts, "v1,AAAA "+sig), "any listed signature may match")

		assert.ErrorIs(t, v.Verify(payload, "msg_2", ts, sig), ErrNoValidSignature)
		assert.ErrorIs(t, v.Verify([]byte(`{}`), "msg_1", ts, sig), ErrNoValidSignature)
		assert.ErrorIs(t, v.Verify(payload, "", ts, sig), ErrMissingHeaders)
		assert.ErrorIs(t, v.Verify(payload, "msg_1", "yesterday", sig), ErrInvalidTimestamp)

		old := strconv.FormatInt(now.Add(-10*time.Minute).Unix(), 10)
		assert.ErrorIs(t, v.Verify(payload, "msg_1", old, sig), ErrTimestampExpired)
	}
}
