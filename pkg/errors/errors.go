// Package errors carries the error codes shared by the linesim REST surface
// and the floorview CLI. A code travels as the "error" field of a JSON body.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeInvalidInput       ErrorCode = "INVALID_INPUT"
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeNoActivePolicy     ErrorCode = "NO_ACTIVE_POLICY"
	ErrCodeRateLimit          ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal           ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeBadGateway         ErrorCode = "BAD_GATEWAY"
)

// AppError is an error with a stable code, the HTTP status it is served
// with, and optional key/value details.
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

func (e *AppError) Error() string {
	msg := string(e.Code) + ": " + e.Message
	if e.Cause != nil {
		msg += fmt.Sprintf(" (caused by: %v)", e.Cause)
	}
	return msg
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext sets a detail and returns e for chaining.
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = map[string]interface{}{}
	}
	e.Context[key] = value
	return e
}

func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return WrapError(nil, code, message, httpStatus)
}

func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    map[string]interface{}{},
	}
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrCodeNotFound, resource+" not found", http.StatusNotFound)
}

// NewNoActivePolicyError is returned by inspections attempted before any
// policy was approved.
func NewNoActivePolicyError() *AppError {
	return NewAppError(ErrCodeNoActivePolicy, "no approved policy is active", http.StatusBadRequest)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "rate limit exceeded", http.StatusTooManyRequests)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

func NewBadGatewayError(message string) *AppError {
	return NewAppError(ErrCodeBadGateway, message, http.StatusBadGateway)
}

// FromStatus maps a non-2xx collaborator response to an AppError. The raw
// body is kept under the "body" detail.
func FromStatus(status int, body string) *AppError {
	var e *AppError
	switch {
	case status == http.StatusNotFound:
		e = NewAppError(ErrCodeNotFound, "resource not found", status)
	case status == http.StatusTooManyRequests:
		e = NewRateLimitError()
	case status == http.StatusServiceUnavailable:
		e = NewServiceUnavailableError("collaborator unavailable")
	case status >= 400 && status < 500:
		e = NewAppError(ErrCodeInvalidInput, "request rejected", status)
	default:
		e = NewBadGatewayError(fmt.Sprintf("collaborator returned HTTP %d", status))
	}
	if body != "" {
		e.WithContext("body", body)
	}
	return e
}

// GetAppError returns the first AppError in err's chain, or nil.
func GetAppError(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsAppError(err error) bool { return GetAppError(err) != nil }

func HasCode(err error, code ErrorCode) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Code == code
}
