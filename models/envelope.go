package models

import "encoding/json"

// UnknownRequestID is echoed when the request id could not be recovered from the body
const UnknownRequestID = "unknown"

// RequestEnvelope is the inbound body of POST /api/request.
// Pointer fields distinguish an absent key from a zero value.
type RequestEnvelope struct {
	RequestID *string `json:"requestId" validate:"required"`
	Model     *string `json:"model" validate:"required"`
	Call      *Call   `json:"call" validate:"required"`
}

// Call is the invocation payload; Parameters and Types are positionally aligned
type Call struct {
	Parameters []any    `json:"parameters" validate:"required"`
	Types      []string `json:"types" validate:"required"`
}

// ID returns the request id, or UnknownRequestID when it was not decoded
func (r *RequestEnvelope) ID() string {
	if r == nil || r.RequestID == nil {
		return UnknownRequestID
	}
	return *r.RequestID
}

// ModelID returns the model id, or empty string when absent
func (r *RequestEnvelope) ModelID() string {
	if r == nil || r.Model == nil {
		return ""
	}
	return *r.Model
}

// ResponseEnvelope is the outbound body of POST /api/request; all four fields are always present
type ResponseEnvelope struct {
	RequestID string `json:"requestId"`
	Data      any    `json:"data"`
	DataType  string `json:"datatype"`
	Error     string `json:"error"`
}

// Success builds a success envelope
func Success(requestID string, data any, dataType string) *ResponseEnvelope {
	return &ResponseEnvelope{
		RequestID: requestID,
		Data:      data,
		DataType:  dataType,
		Error:     "",
	}
}

// Failure builds an error envelope with empty data and datatype
func Failure(requestID string, message string) *ResponseEnvelope {
	return &ResponseEnvelope{
		RequestID: requestID,
		Data:      "",
		DataType:  "",
		Error:     message,
	}
}

// MarshalJSON keeps data present as "" when a handler returned nil
func (e ResponseEnvelope) MarshalJSON() ([]byte, error) {
	type alias ResponseEnvelope
	if e.Data == nil {
		e.Data = ""
	}
	return json.Marshal(alias(e))
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string   `json:"status"`
	Models []string `json:"models"`
}
