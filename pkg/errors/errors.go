// Package errors defines AppError, the error type rendered by the HTTP layer
// as {code, message, details}.
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeBadRequest         = "BAD_REQUEST"
	CodeNotFound           = "RESOURCE_NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeTimeout            = "TIMEOUT"
)

var defaultStatus = map[string]int{
	CodeValidationError:    http.StatusBadRequest,
	CodeBadRequest:         http.StatusBadRequest,
	CodeNotFound:           http.StatusNotFound,
	CodeInternalError:      http.StatusInternalServerError,
	CodeServiceUnavailable: http.StatusServiceUnavailable,
	CodeTimeout:            http.StatusGatewayTimeout,
}

// AppError carries the code and HTTP status a failure is reported with
type AppError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	HTTPStatus int               `json:"-"`
	Err        error             `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Wrap records the underlying cause and returns e
func (e *AppError) Wrap(err error) *AppError {
	e.Err = err
	return e
}

// NewAppError builds an error with an explicit status
func NewAppError(code, message string, httpStatus int) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: httpStatus}
}

func newCoded(code, message string) *AppError {
	return NewAppError(code, message, defaultStatus[code])
}

// ErrValidation reports input that is well formed but not acceptable
func ErrValidation(message string) *AppError {
	return newCoded(CodeValidationError, message)
}

// ErrValidationWithFields is ErrValidation with per field messages
func ErrValidationWithFields(message string, fields map[string]string) *AppError {
	e := ErrValidation(message)
	e.Details = fields
	return e
}

// ErrBadRequest reports input that could not be read at all
func ErrBadRequest(message string) *AppError {
	return newCoded(CodeBadRequest, message)
}

// ErrNotFoundWithID reports a missing resource and echoes its id
func ErrNotFoundWithID(resource, id string) *AppError {
	e := newCoded(CodeNotFound, resource+" not found")
	e.Details = map[string]string{"id": id}
	return e
}

// ErrInternal reports a server side failure. An empty message gets a generic one.
func ErrInternal(message string) *AppError {
	if message == "" {
		message = "an internal error occurred"
	}
	return newCoded(CodeInternalError, message)
}

// ErrServiceUnavailable reports a dependency that is refusing calls
func ErrServiceUnavailable(dependency string) *AppError {
	return newCoded(CodeServiceUnavailable, dependency+" is temporarily unavailable")
}

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Classify maps any error onto an AppError. AppErrors in the chain win,
// an expired context becomes TIMEOUT and everything else is INTERNAL_ERROR.
func Classify(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newCoded(CodeTimeout, "the operation timed out").Wrap(err)
	}
	return ErrInternal("").Wrap(err)
}
