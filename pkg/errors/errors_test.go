package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrInvalidInput, ErrUnauthorized, ErrForbidden, ErrConflict,
		ErrTooManyRequests, ErrInternal, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withCause := &AppError{Code: "INTERNAL_ERROR", Message: "search failed", Err: fmt.Errorf("connection reset")}
	assert.Contains(t, withCause.Error(), "INTERNAL_ERROR")
	assert.Contains(t, withCause.Error(), "connection reset")

	bare := &AppError{Code: "INVALID_INPUT", Message: "search query is required"}
	assert.Equal(t, "INVALID_INPUT: search query is required", bare.Error())
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("search query is required")
	require.NotNil(t, err)
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, "search query is required", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestInternal_HidesCause(t *testing.T) {
	cause := errors.New("elasticsearch search: search_phase_execution_exception")
	err := Internal(cause)

	assert.Equal(t, "an internal error occurred", err.Message)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input app error", InvalidInput("x"), http.StatusBadRequest},
		{"unauthorized", Unauthorized("missing token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("invalid token"), http.StatusForbidden},
		{"conflict", Conflict("reindex already running"), http.StatusConflict},
		{"wrapped conflict sentinel", fmt.Errorf("start: %w", ErrConflict), http.StatusConflict},
		{"rate limited", TooManyRequests(), http.StatusTooManyRequests},
		{"unavailable", Unavailable("reindex source not configured"), http.StatusServiceUnavailable},
		{"wrapped sentinel", fmt.Errorf("parse: %w", ErrInvalidInput), http.StatusBadRequest},
		{"wrapped app error", Wrap(Forbidden("no"), "auth"), http.StatusForbidden},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
