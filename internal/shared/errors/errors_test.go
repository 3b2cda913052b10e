package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentRequiredError(t *testing.T) {
	cause := errors.New("limit exceeded")
	err := NewPaymentRequiredError("upgrade required", map[string]any{"limit": 5}, cause)

	assert.Equal(t, http.StatusPaymentRequired, err.Code)
	assert.True(t, IsPaymentRequiredError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 5, err.Meta["limit"])
}

func TestGetAppError_Wrapped(t *testing.T) {
	wrapped := errors.Join(errors.New("outer"), NewNotFoundError("subscription not found"))

	appErr := GetAppError(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrorTypeNotFound, appErr.Type)
	assert.True(t, IsNotFoundError(wrapped))
	assert.False(t, IsValidationError(wrapped))
}

func TestUpstreamError_NotPaymentRequired(t *testing.T) {
	err := NewUpstreamError("payment provider unavailable, please try again", errors.New("timeout"))

	assert.Equal(t, http.StatusBadGateway, err.Code)
	assert.False(t, IsPaymentRequiredError(err))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(errors.New("Error 1062: Duplicate entry 'org_1' for key 'organization_id'")))
	assert.True(t, IsDuplicateError(errors.New("ERROR: duplicate key value violates unique constraint")))
	assert.True(t, IsDuplicateError(errors.New("UNIQUE constraint failed: subscriptions.organization_id")))
	assert.False(t, IsDuplicateError(errors.New("connection refused")))
	assert.False(t, IsDuplicateError(nil))
}
