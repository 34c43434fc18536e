package app

import (
	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/processors"
	"github.com/upb/dtn-ai-router/processors/echo"
	"github.com/upb/dtn-ai-router/processors/gemini"
	"github.com/upb/dtn-ai-router/processors/openai"
	"github.com/upb/dtn-ai-router/services/registry"
	"go.uber.org/zap"
)

// DefaultCatalog returns the processors compiled into the binary.
// The models file refers to them by these names.
func DefaultCatalog() registry.Catalog {
	return registry.Catalog{
		echo.ProcessorName: func(*config.Config, *zap.Logger) (processors.Handler, error) {
			return echo.New(), nil
		},
		openai.ProcessorName: openai.Factory,
		gemini.ProcessorName: gemini.Factory,
	}
}
