package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lexora-inc/lexora/internal/interfaces/http/handlers/testutil"
	"github.com/lexora-inc/lexora/internal/shared/logger"
)

type mockPinger struct{ err error }

func (m mockPinger) PingContext(ctx context.Context) error { return m.err }

func TestHealthHandler(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		c, w := testutil.NewTestContext(http.MethodGet, "/health", nil)
		NewHealthHandler(mockPinger{}, logger.NewNop()).Health(c)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("database down", func(t *testing.T) {
		c, w := testutil.NewTestContext(http.MethodGet, "/health", nil)
		NewHealthHandler(mockPinger{err: errors.New("refused")}, logger.NewNop()).Health(c)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}
