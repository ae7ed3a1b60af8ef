package common

import (
	"errors"
	"net/http"
)

// Stable error codes rendered in the "error" field of failure responses.
const (
	CodeUnauthorized          = "Unauthorized"
	CodeInvalidInput          = "InvalidInput"
	CodeInvalidState          = "InvalidState"
	CodeSignatureVerification = "SignatureVerificationError"
	CodePaymentProvider       = "PaymentProviderError"
	CodeRecording             = "RecordingError"
	CodeRateLimited           = "RateLimited"
	CodeInternal              = "InternalError"
)

// AppError represents an error with an attached code and HTTP status.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Code + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Code + ": " + e.Message
}

// Unwrap allows errors.Is/As to inspect the underlying error.
func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(code, message string, status int, err error) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// Unauthorized rejects a request whose credential is missing or unverifiable.
func Unauthorized(message string, err error) *AppError {
	return NewAppError(CodeUnauthorized, message, http.StatusForbidden, err)
}

// InvalidInput rejects a malformed request.
func InvalidInput(message string) *AppError {
	return NewAppError(CodeInvalidInput, message, http.StatusBadRequest, nil)
}

// InvalidState rejects a request whose target is not in the required state.
func InvalidState(message string) *AppError {
	return NewAppError(CodeInvalidState, message, http.StatusBadRequest, nil)
}

// SignatureVerification rejects an untrusted webhook delivery.
func SignatureVerification(message string, err error) *AppError {
	return NewAppError(CodeSignatureVerification, message, http.StatusBadRequest, err)
}

// ProviderFailure wraps a downstream failure behind a sanitized message.
func ProviderFailure(code, message string, err error) *AppError {
	return NewAppError(code, message, http.StatusInternalServerError, err)
}

// AsAppError returns the first AppError in the chain, or a generic internal error.
func AsAppError(err error) *AppError {
	var target *AppError
	if errors.As(err, &target) {
		return target
	}
	return NewAppError(CodeInternal, "Internal server error", http.StatusInternalServerError, err)
}
