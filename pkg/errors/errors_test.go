package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errNoSlot = errors.New("no destination slot available")

func TestMapDomainError_RegisteredSentinel(t *testing.T) {
	Register(errNoSlot, CodeUnprocessable, http.StatusUnprocessableEntity)

	appErr := MapDomainError(fmt.Errorf("store incoming goods: %w", errNoSlot))

	require.NotNil(t, appErr)
	assert.Equal(t, CodeUnprocessable, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	assert.ErrorIs(t, appErr, errNoSlot)
}

func TestMapDomainError_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", errors.New("run abc not found"), http.StatusNotFound},
		{"invalid", errors.New("invalid strategy"), http.StatusBadRequest},
		{"breaker", errors.New("circuit breaker content-api is open"), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, MapDomainError(tt.err).HTTPStatus)
		})
	}
}

func TestMapDomainError_PassesAppErrorThrough(t *testing.T) {
	original := ErrConflict("run already completed")
	assert.Same(t, original, MapDomainError(fmt.Errorf("wrapped: %w", original)))
	assert.Nil(t, MapDomainError(nil))
}
