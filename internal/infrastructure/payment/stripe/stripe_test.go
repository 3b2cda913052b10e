package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/application/billing/paymentprovider"
	"github.com/lexora-inc/lexora/internal/infrastructure/payment"
	"github.com/lexora-inc/lexora/internal/shared/config"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g := NewGateway(
		config.StripeConfig{SecretKey: "sk_test_123", BaseURL: srv.URL},
		config.BillingConfig{RequestTimeoutSec: 2, MaxRetries: 2},
		logger.NewNop(),
	)
	g.client.SetRetryIntervals(time.Millisecond, 5*time.Millisecond)
	return g
}

func TestCreateCheckout(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("Idempotency-Key"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "subscription", r.PostForm.Get("mode"))
		assert.Equal(t, "price_pro_monthly", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "cus_1", r.PostForm.Get("customer"))
		assert.Equal(t, "org_1", r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "org_1", r.PostForm.Get("subscription_data[metadata][organizationId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","url":"https://checkout.stripe.com/c/cs_1"}`))
	})

	sess, err := g.CreateCheckout(context.Background(), paymentprovider.CheckoutRequest{
		OrganizationID: "org_1",
		CustomerID:     "cus_1",
		PriceID:        "price_pro_monthly",
		SuccessURL:     "https://app/ok",
		CancelURL:      "https://app/cancel",
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_1", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_1", sess.URL)
}

func TestFindCustomerByEmail(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/customers", r.URL.Path)
		if r.URL.Query().Get("email") == "known@firm.law" {
			_, _ = w.Write([]byte(`{"data":[{"id":"cus_9","email":"known@firm.law"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"data":[]}`))
	})

	c, err := g.FindCustomerByEmail(context.Background(), "known@firm.law")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "cus_9", c.ID)

	c, err = g.FindCustomerByEmail(context.Background(), "nobody@firm.law")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestRetriesServerErrors(t *testing.T) {
	var (
		calls atomic.Int32
		mu    sync.Mutex
		keys  []string
	)
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		mu.Unlock()
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"bps_1","url":"https://billing.stripe.com/p/1"}`))
	})

	sess, err := g.CreatePortalSession(context.Background(), paymentprovider.PortalRequest{CustomerID: "cus_1"})
	require.NoError(t, err)
	assert.Equal(t, "https://billing.stripe.com/p/1", sess.URL)
	assert.Equal(t, int32(3), calls.Load())
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, keys, 3)
	assert.Equal(t, keys[0], keys[2], "retries reuse the idempotency key")
}

func TestClientErrorIsPermanent(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"No such price: 'price_x'"}}`))
	})

	_, err := g.CreateCheckout(context.Background(), paymentprovider.CheckoutRequest{PriceID: "price_x"})
	require.Error(t, err)

	var perr *payment.ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, http.StatusBadRequest, perr.StatusCode)
	assert.Equal(t, "No such price: 'price_x'", perr.Message)
	assert.False(t, perr.Retryable())
	assert.Equal(t, int32(1), calls.Load())
}

func TestRetriesAreBounded(t *testing.T) {
	var calls atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := g.FindCustomerByEmail(context.Background(), "a@b.c")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestWebhookVerifier(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	now := time.Unix(1_760_000_000, 0)

	v := NewWebhookVerifier(secret)
	v.now = func() time.Time { return now }

	assert.NoError(t, v.Verify(payload, SignatureHeader(secret, now, payload)))
	assert.NoError(t, v.Verify(payload, SignatureHeader(secret, now.Add(-4*time.Minute), payload)))

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"missing", "", ErrMissingSignature},
		{"no timestamp", "v1=abcd", ErrInvalidHeader},
		{"expired", SignatureHeader(secret, now.Add(-6*time.Minute), payload), ErrTimestampExpired},
		{"wrong secret", SignatureHeader("whsec_other", now, payload), ErrNoValidSignature},
		{"tampered", SignatureHeader(secret, now, []byte(`{"id":"evt_2"}`)), ErrNoValidSignature},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, v.Verify(payload, tt.header), tt.want)
		})
	}
}

func TestWebhookVerifier_AcceptsAnyOfSeveralSignatures(t *testing.T) {
	const secret = "whsec_test"
	payload := []byte(`{}`)
	now := time.Unix(1_760_000_000, 0)
	v := NewWebhookVerifier(secret)
	v.now = func() time.Time { return now }

	good := SignatureHeader(secret, now, payload)
	header := good + ",v1=00ff"
	assert.NoError(t, v.Verify(payload, header))
}
