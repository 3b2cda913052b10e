package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lexora-inc/lexora/internal/shared/logger"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(ClientOptions{
		Provider:   "acme",
		BaseURL:    srv.URL,
		Token:      "tok_123",
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		Idempotent: true,
	}, logger.NewNop())
	c.SetRetryIntervals(time.Millisecond, 5*time.Millisecond)
	return c
}

func TestClient_RetriesThenSucceeds(t *testing.T) {
	var (
		mu   sync.Mutex
		keys []string
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		keys = append(keys, r.Header.Get("Idempotency-Key"))
		n := len(keys)
		mu.Unlock()

		if n < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"id":"cus_1"}`))
	})

	var out struct {
		ID string `json:"id"`
	}
	err := c.DoJSON(context.Background(), Request{Method: http.MethodPost, Path: "/customers", JSON: map[string]string{"email": "a@b.c"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, "cus_1", out.ID)

	require.Len(t, keys, 3)
	assert.NotEmpty(t, keys[0])
	assert.Equal(t, keys[0], keys[1], "retries reuse the idempotency key")
	assert.Equal(t, keys[0], keys[2])
}

func TestClient_NotFoundIsNotRetried(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such customer"))
	})

	err := c.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/customers/cus_x"}, nil)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusNotFound, perr.StatusCode)
	assert.Equal(t, "no such customer", perr.Message)
	assert.Equal(t, 1, calls)
}

func TestClient_ContextExpiresDuringBackoff(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	c.SetRetryIntervals(time.Second, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.DoJSON(ctx, Request{Method: http.MethodGet, Path: "/customers"}, nil)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_SingleAttemptReturnsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)
	c := NewClient(ClientOptions{Provider: "acme", BaseURL: srv.URL, MaxRetries: -1}, logger.NewNop())

	err := c.DoJSON(context.Background(), Request{Method: http.MethodGet, Path: "/plans"}, nil)
	perr, ok := err.(*ProviderError)
	require.True(t, ok, "got %T", err)
	assert.Equal(t, http.StatusUnprocessableEntity, perr.StatusCode)
}
