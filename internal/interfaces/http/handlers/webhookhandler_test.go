package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/application/billing/usecases"
	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers/testutil"
	"github.com/lexora-inc/lexora/internal/shared/constants"
	apperrors "github.com/lexora-inc/lexora/internal/shared/errors"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type mockStripeVerifier struct{ err error }

func (m *mockStripeVerifier) Verify(payload []byte, header string) error { return m.err }

type mockPolarVerifier struct {
	err    error
	lastID string
}

func (m *mockPolarVerifier) Verify(payload []byte, id, timestamp, signature string) error {
	m.lastID = id
	return m.err
}

type mockPaystackVerifier struct{ err error }

func (m *mockPaystackVerifier) Verify(payload []byte, signature string) error { return m.err }

type mockWebhookProcessor struct {
	outcome       *usecases.WebhookOutcome
	err           error
	calls         int
	lastWebhookID string
	lastPayload   []byte
}

func (m *mockWebhookProcessor) ProcessStripe(ctx context.Context, payload []byte) (*usecases.WebhookOutcome, error) {
	m.calls++
	m.lastPayload = payload
	return m.outcome, m.err
}

func (m *mockWebhookProcessor) ProcessPolar(ctx context.Context, webhookID string, payload []byte) (*usecases.WebhookOutcome, error) {
	m.calls++
	m.lastWebhookID = webhookID
	m.lastPayload = payload
	return m.outcome, m.err
}

func (m *mockWebhookProcessor) ProcessPaystack(ctx context.Context, payload []byte) (*usecases.WebhookOutcome, error) {
	m.calls++
	m.lastPayload = payload
	return m.outcome, m.err
}

func TestWebhookHandler_Stripe(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"customer.subscription.updated","data":{"object":{}}}`)

	t.Run("verified delivery is processed", func(t *testing.T) {
		proc := &mockWebhookProcessor{outcome: &usecases.WebhookOutcome{EventID: "evt_1", EventType: "customer.subscription.updated", Handled: true}}
		h := NewWebhookHandler(WebhookVerifiers{Stripe: &mockStripeVerifier{}}, proc, logger.NewNop())
		c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/stripe", body, map[string]string{
			constants.HeaderStripeSignature: "t=1,v1=abc",
		})

		h.HandleStripe(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, body, proc.lastPayload)
		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		var out usecases.WebhookOutcome
		require.NoError(t, json.Unmarshal(resp.Data, &out))
		assert.True(t, out.Handled)
		assert.Equal(t, "evt_1", out.EventID)
	})

	t.Run("bad signature is rejected before processing", func(t *testing.T) {
		proc := &mockWebhookProcessor{}
		h := NewWebhookHandler(WebhookVerifiers{Stripe: &mockStripeVerifier{err: errors.New("no valid signature")}}, proc, logger.NewNop())
		c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/stripe", body, nil)

		h.HandleStripe(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, proc.calls)
	})

	t.Run("not configured", func(t *testing.T) {
		h := NewWebhookHandler(WebhookVerifiers{}, &mockWebhookProcessor{}, logger.NewNop())
		c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/stripe", body, nil)

		h.HandleStripe(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("processing failure asks for a retry", func(t *testing.T) {
		proc := &mockWebhookProcessor{err: apperrors.NewUnavailableError("failed to check webhook delivery", errors.New("db down"))}
		h := NewWebhookHandler(WebhookVerifiers{Stripe: &mockStripeVerifier{}}, proc, logger.NewNop())
		c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/stripe", body, nil)

		h.HandleStripe(c)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestWebhookHandler_Polar(t *testing.T) {
	verifier := &mockPolarVerifier{}
	proc := &mockWebhookProcessor{outcome: &usecases.WebhookOutcome{EventID: "msg_1", Duplicate: true}}
	h := NewWebhookHandler(WebhookVerifiers{Polar: verifier}, proc, logger.NewNop())
	c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/polar", []byte(`{"type":"subscription.updated","data":{}}`), map[string]string{
		constants.HeaderWebhookID:        "msg_1",
		constants.HeaderWebhookTimestamp: "1760000000",
		constants.HeaderWebhookSignature: "v1,abc",
	})

	h.HandlePolar(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "msg_1", verifier.lastID)
	assert.Equal(t, "msg_1", proc.lastWebhookID)
}

func TestWebhookHandler_Paystack(t *testing.T) {
	t.Run("bad signature", func(t *testing.T) {
		proc := &mockWebhookProcessor{}
		h := NewWebhookHandler(WebhookVerifiers{Paystack: &mockPaystackVerifier{err: errors.New("mismatch")}}, proc, logger.NewNop())
		c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/paystack", []byte(`{}`), nil)

		h.HandlePaystack(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Zero(t, proc.calls)
	})

	t.Run("malformed payload", func(t *testing.T) {
		proc := &mockWebhookProcessor{err: apperrors.NewValidationError("malformed webhook payload")}
		h := NewWebhookHandler(WebhookVerifiers{Paystack: &mockPaystackVerifier{}}, proc, logger.NewNop())
		c, w := testutil.NewRawContext(http.MethodPost, "/webhooks/paystack", []byte(`{`), nil)

		h.HandlePaystack(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
