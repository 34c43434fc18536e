package services

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of dispatch failure categories
type Kind int

const (
	// KindMalformedBody means the request body could not be decoded
	KindMalformedBody Kind = iota + 1
	// KindMissingField means a required top-level envelope key is absent
	KindMissingField
	// KindInvalidCall means the call object lacks parameters or types
	KindInvalidCall
	// KindUnsupportedModel means no handler is registered for the model id
	KindUnsupportedModel
	// KindHandler is a typed failure signaled by the handler itself
	KindHandler
	// KindInternal is any unanticipated failure during handler invocation
	KindInternal
)

// String returns the wire name of the kind
func (k Kind) String() string {
	switch k {
	case KindMalformedBody:
		return "malformed_body"
	case KindMissingField:
		return "missing_field"
	case KindInvalidCall:
		return "invalid_call"
	case KindUnsupportedModel:
		return "unsupported_model"
	case KindHandler:
		return "handler_error"
	case KindInternal:
		return "internal_error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// HTTPStatus maps the kind to the status code returned to the caller
func (k Kind) HTTPStatus() int {
	switch k {
	case KindMalformedBody, KindMissingField, KindInvalidCall, KindUnsupportedModel, KindHandler:
		return http.StatusBadRequest
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// DispatchError is a dispatch failure carrying the caller-visible message
type DispatchError struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface
func (e *DispatchError) Error() string {
	return e.Message
}

// Unwrap implements errors.Unwrap
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is matches any DispatchError of the same kind
func (e *DispatchError) Is(target error) bool {
	t, ok := target.(*DispatchError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewDispatchError creates a new dispatch error
func NewDispatchError(kind Kind, message string, err error) *DispatchError {
	return &DispatchError{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Sentinels for errors.Is comparisons
var (
	ErrMalformedBody    = &DispatchError{Kind: KindMalformedBody, Message: "Invalid JSON in request body"}
	ErrMissingField     = &DispatchError{Kind: KindMissingField, Message: "Missing required field"}
	ErrInvalidCall      = &DispatchError{Kind: KindInvalidCall, Message: "Call must contain parameters and types"}
	ErrUnsupportedModel = &DispatchError{Kind: KindUnsupportedModel, Message: "Model not supported"}
	ErrInternal         = &DispatchError{Kind: KindInternal, Message: "Processing error"}
)

// MissingField reports an absent top-level envelope key
func MissingField(field string) *DispatchError {
	return NewDispatchError(KindMissingField, fmt.Sprintf("Missing required field: %s", field), nil)
}

// InvalidCall reports a call object without parameters or types
func InvalidCall() *DispatchError {
	return NewDispatchError(KindInvalidCall, ErrInvalidCall.Message, nil)
}

// MalformedBody reports a body that could not be decoded
func MalformedBody(err error) *DispatchError {
	return NewDispatchError(KindMalformedBody, ErrMalformedBody.Message, err)
}

// UnsupportedModel reports a model id absent from the registry
func UnsupportedModel(model string) *DispatchError {
	return NewDispatchError(KindUnsupportedModel, fmt.Sprintf("Model %s not supported", model), nil)
}

// Internal wraps an unanticipated failure with the processing error prefix
func Internal(err error) *DispatchError {
	return NewDispatchError(KindInternal, fmt.Sprintf("%s: %v", ErrInternal.Message, err), err)
}

// Classify converts a handler failure into a dispatch error.
// Typed API errors keep their message verbatim; everything else is internal.
func Classify(err error) *DispatchError {
	if err == nil {
		return nil
	}
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return NewDispatchError(KindHandler, apiErr.Message, apiErr)
	}
	return Internal(err)
}

// KindOf returns the Kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var dispatchErr *DispatchError
	if errors.As(err, &dispatchErr) {
		return dispatchErr.Kind
	}
	return KindInternal
}

// StatusCode returns the HTTP status for err; nil maps to 200
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return KindOf(err).HTTPStatus()
}
