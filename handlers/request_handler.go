package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/services"
	"github.com/upb/dtn-ai-router/utils"
	"go.uber.org/zap"
)

// Dispatcher turns a raw request body into a response envelope
type Dispatcher interface {
	Dispatch(ctx context.Context, body []byte) (*models.ResponseEnvelope, error)
}

// RequestHandler handles POST /api/request
type RequestHandler struct {
	dispatcher   Dispatcher
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewRequestHandler creates a new RequestHandler
func NewRequestHandler(dispatcher Dispatcher, maxBodyBytes int64, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{
		dispatcher:   dispatcher,
		maxBodyBytes: maxBodyBytes,
		logger:       logger,
	}
}

// HandleRequest reads the body, dispatches it and writes the response envelope.
// Every outcome, including an unreadable body, is answered with an envelope.
func (h *RequestHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.logger.Warn("request body too large", zap.Int64("limit", maxErr.Limit))
		} else {
			h.logger.Warn("failed to read request body", zap.Error(err))
		}
		h.write(w, models.Failure(models.UnknownRequestID, services.MalformedBody(err).Error()), http.StatusBadRequest)
		return
	}

	resp, err := h.dispatcher.Dispatch(r.Context(), body)
	h.write(w, resp, services.StatusCode(err))
}

// write sends resp. Handler data that cannot be encoded as JSON (NaN, channels, ...)
// is replaced by an internal error envelope so the caller still gets one.
func (h *RequestHandler) write(w http.ResponseWriter, resp *models.ResponseEnvelope, status int) {
	err := utils.WriteJSON(w, status, resp)

	var encodeErr *utils.EncodeError
	if errors.As(err, &encodeErr) {
		h.logger.Error("handler result is not encodable",
			zap.String("request_id", resp.RequestID),
			zap.String("datatype", resp.DataType),
			zap.Error(encodeErr.Err))
		failure := models.Failure(resp.RequestID, services.Internal(encodeErr.Err).Error())
		err = utils.WriteJSON(w, services.StatusCode(services.ErrInternal), failure)
	}

	if err != nil {
		h.logger.Error("failed to write response",
			zap.String("request_id", resp.RequestID),
			zap.Error(err))
	}
}
