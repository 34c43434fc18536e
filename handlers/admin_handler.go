package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/services/dispatch"
	"github.com/upb/dtn-ai-router/utils"
	"go.uber.org/zap"
)

// DispatchLogReader looks up persisted dispatch records
type DispatchLogReader interface {
	ListByRequestID(ctx context.Context, requestID string) ([]*models.DispatchRecord, error)
}

// PoolStatsReader reports execution pool counters
type PoolStatsReader interface {
	Stats() dispatch.PoolStats
}

// DispatchLogResponse is the body of GET /dispatch-log/{requestId}
type DispatchLogResponse struct {
	RequestID string                   `json:"requestId"`
	Records   []*models.DispatchRecord `json:"records"`
}

// PoolStatsResponse is the body of GET /debug/pool
type PoolStatsResponse struct {
	Workers   int   `json:"workers"`
	Queued    int   `json:"queued"`
	InFlight  int64 `json:"in_flight"`
	Completed int64 `json:"completed"`
	Panicked  int64 `json:"panicked"`
	TimedOut  int64 `json:"timed_out"`
	Closed    bool  `json:"closed"`
}

// AdminHandler serves the operator endpoints mounted on the metrics listener
type AdminHandler struct {
	logs   DispatchLogReader // nil when the dispatch log is disabled
	pool   PoolStatsReader
	logger *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(logs DispatchLogReader, pool PoolStatsReader, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		logs:   logs,
		pool:   pool,
		logger: logger,
	}
}

// HandleDispatchLog handles GET /dispatch-log/{requestId}
func (h *AdminHandler) HandleDispatchLog(w http.ResponseWriter, r *http.Request) {
	if h.logs == nil {
		_ = utils.WriteJSON(w, http.StatusServiceUnavailable, utils.ErrorResponse{
			Error:   "unavailable",
			Message: "Dispatch log is disabled",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requestID := chi.URLParam(r, "requestId")
	records, err := h.logs.ListByRequestID(ctx, requestID)
	if err != nil {
		h.logger.Error("failed to list dispatch records",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteJSON(w, http.StatusInternalServerError, utils.ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to read dispatch log",
		})
		return
	}
	if len(records) == 0 {
		_ = utils.WriteNotFound(w, "No dispatch records for request id")
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, DispatchLogResponse{
		RequestID: requestID,
		Records:   records,
	})
}

// HandlePoolStats handles GET /debug/pool
func (h *AdminHandler) HandlePoolStats(w http.ResponseWriter, r *http.Request) {
	stats := h.pool.Stats()
	_ = utils.WriteJSON(w, http.StatusOK, PoolStatsResponse{
		Workers:   stats.Workers,
		Queued:    stats.Queued,
		InFlight:  stats.InFlight,
		Completed: stats.Completed,
		Panicked:  stats.Panicked,
		TimedOut:  stats.TimedOut,
		Closed:    stats.Closed,
	})
}
