package services

import (
	"errors"
	"fmt"
)

// ErrorCode identifies why a handler rejected an invocation
type ErrorCode string

const (
	CodeInvalidParameters       ErrorCode = "INVALID_PARAMETERS"
	CodeNoResponse              ErrorCode = "NO_RESPONSE"
	CodeMissingAPIKey           ErrorCode = "MISSING_API_KEY"
	CodeTextGenerationError     ErrorCode = "TEXT_GENERATION_ERROR"
	CodeImageGenerationError    ErrorCode = "IMAGE_GENERATION_ERROR"
	CodeNoSanitizedText         ErrorCode = "NO_SANITIZED_TEXT"
	CodeNoImageData             ErrorCode = "NO_IMAGE_DATA"
	CodeUnsupportedModelVariant ErrorCode = "UNSUPPORTED_MODEL_VARIANT"
)

// APIError is the typed failure a handler returns for caller-correctable conditions.
// The dispatcher surfaces Message verbatim with a 400.
type APIError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new handler API error
func NewAPIError(code ErrorCode, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WrapAPIError creates an API error whose message includes the cause
func WrapAPIError(code ErrorCode, message string, err error) *APIError {
	return &APIError{
		Code:    code,
		Message: fmt.Sprintf("%s: %v", message, err),
		Err:     err,
	}
}

// IsAPIError checks if an error is a handler API error
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// GetErrorCode returns the code of an API error, or empty string otherwise
func GetErrorCode(err error) ErrorCode {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}
