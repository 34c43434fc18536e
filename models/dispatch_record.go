package models

import (
	"time"

	"github.com/google/uuid"
)

// DispatchRecord is one persisted dispatch outcome
type DispatchRecord struct {
	ID           uuid.UUID `json:"id" db:"id"`
	RequestID    string    `json:"request_id" db:"request_id"` // Caller-supplied, not unique
	Model        string    `json:"model" db:"model"`
	StatusCode   int       `json:"status_code" db:"status_code"`
	ErrorKind    *string   `json:"error_kind,omitempty" db:"error_kind"`
	ErrorMessage *string   `json:"error_message,omitempty" db:"error_message"`
	LatencyMs    int       `json:"latency_ms" db:"latency_ms"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// NewDispatchRecord creates a record for a finished dispatch
func NewDispatchRecord(requestID, model string, statusCode int, latency time.Duration) *DispatchRecord {
	return &DispatchRecord{
		ID:         uuid.New(),
		RequestID:  requestID,
		Model:      model,
		StatusCode: statusCode,
		LatencyMs:  int(latency.Milliseconds()),
		CreatedAt:  time.Now().UTC(),
	}
}

// WithError attaches the failure details
func (r *DispatchRecord) WithError(kind, message string) *DispatchRecord {
	r.ErrorKind = &kind
	r.ErrorMessage = &message
	return r
}

// Succeeded reports whether the dispatch returned 2xx
func (r *DispatchRecord) Succeeded() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
