package handlers

import (
	"net/http"

	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/utils"
	"go.uber.org/zap"
)

// ModelLister reports the registered model ids
type ModelLister interface {
	Models() []string
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	models ModelLister
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(models ModelLister, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		models: models,
		logger: logger,
	}
}

// HandleHealth handles GET /health
// Always 200 while the process serves; the model list is sorted and never null.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	response := models.HealthResponse{
		Status: "healthy",
		Models: h.models.Models(),
	}
	if response.Models == nil {
		response.Models = []string{}
	}

	if err := utils.WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("failed to write health response", zap.Error(err))
	}
}
