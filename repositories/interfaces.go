package repositories

import (
	"context"

	"github.com/upb/dtn-ai-router/models"
)

// DispatchLogRepository persists dispatch outcomes
type DispatchLogRepository interface {
	// Insert writes one dispatch record
	Insert(ctx context.Context, record *models.DispatchRecord) error

	// ListByRequestID returns the records for a caller request id, newest first.
	// Request ids are caller-supplied and may repeat.
	ListByRequestID(ctx context.Context, requestID string) ([]*models.DispatchRecord, error)
}

// Repositories aggregates the repositories used by the application
type Repositories struct {
	DispatchLog DispatchLogRepository
}
