package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructorsUseCodeStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", ErrValidation("bad input"), CodeValidationError, http.StatusBadRequest},
		{"bad request", ErrBadRequest("nope"), CodeBadRequest, http.StatusBadRequest},
		{"not found", ErrNotFoundWithID("evaluation", "eval-1"), CodeNotFound, http.StatusNotFound},
		{"internal", ErrInternal(""), CodeInternalError, http.StatusInternalServerError},
		{"unavailable", ErrServiceUnavailable("kafka"), CodeServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := ErrNotFoundWithID("evaluation", "eval-1")

	assert.Equal(t, "evaluation not found", err.Message)
	assert.Equal(t, map[string]string{"id": "eval-1"}, err.Details)
}

func TestValidationWithFields(t *testing.T) {
	err := ErrValidationWithFields("function input does not match schema", map[string]string{"/cart": "missing property 'lines'"})

	assert.Equal(t, CodeValidationError, err.Code)
	assert.Equal(t, "missing property 'lines'", err.Details["/cart"])
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrInternal("failed to save").Wrap(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "INTERNAL_ERROR: failed to save: connection refused", err.Error())
	assert.Equal(t, "BAD_REQUEST: nope", ErrBadRequest("nope").Error())
}

func TestAsAppError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", ErrValidation("bad"))

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeValidationError, appErr.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	validation := ErrValidation("unknown pickup policy")

	tests := []struct {
		name string
		err  error
		code string
	}{
		{"app error passes through", fmt.Errorf("service: %w", validation), CodeValidationError},
		{"deadline", fmt.Errorf("save: %w", context.DeadlineExceeded), CodeTimeout},
		{"anything else", errors.New("disk full"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, Classify(tt.err).Code)
		})
	}

	assert.Same(t, validation, Classify(validation))
	assert.ErrorIs(t, Classify(context.DeadlineExceeded), context.DeadlineExceeded)
	assert.Equal(t, http.StatusGatewayTimeout, Classify(context.DeadlineExceeded).HTTPStatus)
	assert.Nil(t, Classify(nil))
}
