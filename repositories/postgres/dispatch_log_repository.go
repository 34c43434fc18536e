package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/repositories"
	"go.uber.org/zap"
)

// DispatchLogRepository implements the repositories.DispatchLogRepository interface
type DispatchLogRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDispatchLogRepository creates a new dispatch log repository
func NewDispatchLogRepository(db *DB, logger *zap.Logger) repositories.DispatchLogRepository {
	return &DispatchLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new dispatch record
func (r *DispatchLogRepository) Insert(ctx context.Context, record *models.DispatchRecord) error {
	query := `
		INSERT INTO dispatch_log (
			id, request_id, model, status_code, error_kind, error_message, latency_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID,
		record.RequestID,
		record.Model,
		record.StatusCode,
		record.ErrorKind,
		record.ErrorMessage,
		record.LatencyMs,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch record: %w", err)
	}

	r.logger.Debug("dispatch record inserted",
		zap.String("id", record.ID.String()),
		zap.String("request_id", record.RequestID))
	return nil
}

// ListByRequestID retrieves the records for a request id, newest first
func (r *DispatchLogRepository) ListByRequestID(ctx context.Context, requestID string) ([]*models.DispatchRecord, error) {
	query := `
		SELECT id, request_id, model, status_code, error_kind, error_message, latency_ms, created_at
		FROM dispatch_log
		WHERE request_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dispatch records: %w", err)
	}
	defer rows.Close()

	var records []*models.DispatchRecord
	for rows.Next() {
		var rec models.DispatchRecord
		var errorKind, errorMessage sql.NullString
		if err := rows.Scan(
			&rec.ID,
			&rec.RequestID,
			&rec.Model,
			&rec.StatusCode,
			&errorKind,
			&errorMessage,
			&rec.LatencyMs,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan dispatch record: %w", err)
		}
		if errorKind.Valid {
			rec.ErrorKind = &errorKind.String
		}
		if errorMessage.Valid {
			rec.ErrorMessage = &errorMessage.String
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dispatch records: %w", err)
	}

	return records, nil
}
