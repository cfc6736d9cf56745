package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	assert.Equal(t, "INVALID_INPUT: test error", err.Error())
}

func TestAppError_WithCause(t *testing.T) {
	originalErr := errors.New("connection refused")
	err := WrapError(originalErr, ErrCodeServiceUnavailable, "status poll failed", 503)

	assert.Same(t, originalErr, err.Cause)
	assert.Contains(t, err.Error(), "connection refused")
	assert.True(t, errors.Is(err, originalErr))
}

func TestAppError_WithContext(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "test error", 400)
	err.WithContext("field", "value").WithContext("count", 42)

	assert.Equal(t, "value", err.Context["field"])
	assert.Equal(t, 42, err.Context["count"])
}

func TestGetAppError_Unwraps(t *testing.T) {
	inner := NewNotFoundError("policy")
	wrapped := fmt.Errorf("approve: %w", inner)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, ErrCodeNotFound, got.Code)
	assert.True(t, IsAppError(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeNotFound))
	assert.False(t, HasCode(wrapped, ErrCodeInternal))
	assert.Nil(t, GetAppError(errors.New("plain")))
	assert.Nil(t, GetAppError(nil))
}

func TestFromStatus(t *testing.T) {
	cases := []struct {
		status int
		code   ErrorCode
	}{
		{http.StatusNotFound, ErrCodeNotFound},
		{http.StatusTooManyRequests, ErrCodeRateLimit},
		{http.StatusServiceUnavailable, ErrCodeServiceUnavailable},
		{http.StatusBadRequest, ErrCodeInvalidInput},
		{http.StatusInternalServerError, ErrCodeBadGateway},
	}

	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			err := FromStatus(tc.status, `{"detail":"x"}`)
			assert.Equal(t, tc.code, err.Code)
			assert.Equal(t, `{"detail":"x"}`, err.Context["body"])
		})
	}
}

func TestConstructors_HTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewInvalidInputError("x").HTTPStatus)
	assert.Equal(t, http.StatusBadRequest, NewNoActivePolicyError().HTTPStatus)
	assert.Equal(t, http.StatusTooManyRequests, NewRateLimitError().HTTPStatus)
	assert.Equal(t, http.StatusInternalServerError, NewInternalError("x").HTTPStatus)
	assert.Equal(t, http.StatusBadGateway, NewBadGatewayError("x").HTTPStatus)
	assert.Equal(t, http.StatusServiceUnavailable, NewServiceUnavailableError("x").HTTPStatus)
}
