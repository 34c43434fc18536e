package registry

import (
	"fmt"

	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/processors"
	"go.uber.org/zap"
)

// Factory builds the handler for one processor name
type Factory func(cfg *config.Config, logger *zap.Logger) (processors.Handler, error)

// Catalog maps processor names to their factories
type Catalog map[string]Factory

// Build populates a registry from the configured model entries.
//
// Entries with a blank field, an unknown processor or a failing factory are
// logged and skipped; the remaining models are still served. Each processor is
// built at most once and shared by every model that names it.
func Build(entries []config.ModelEntry, catalog Catalog, cfg *config.Config, logger *zap.Logger) *Registry {
	reg := New()
	built := make(map[string]processors.Handler)
	failed := make(map[string]error)

	for _, entry := range entries {
		if !entry.Valid() {
			logger.Warn("skipping incomplete model entry",
				zap.String("model", entry.Model),
				zap.String("processor", entry.Processor))
			continue
		}

		handler, ok := built[entry.Processor]
		if !ok {
			if err, seen := failed[entry.Processor]; seen {
				logger.Warn("skipping model, processor failed to load",
					zap.String("model", entry.Model),
					zap.String("processor", entry.Processor),
					zap.Error(err))
				continue
			}

			h, err := load(entry.Processor, catalog, cfg, logger)
			if err != nil {
				failed[entry.Processor] = err
				logger.Error("failed to load processor",
					zap.String("model", entry.Model),
					zap.String("processor", entry.Processor),
					zap.Error(err))
				continue
			}
			built[entry.Processor] = h
			handler = h
		}

		if err := reg.Register(entry.Model, handler); err != nil {
			logger.Warn("failed to register model", zap.String("model", entry.Model), zap.Error(err))
			continue
		}
		logger.Info("registered model",
			zap.String("model", entry.Model),
			zap.String("processor", entry.Processor))
	}

	return reg
}

func load(name string, catalog Catalog, cfg *config.Config, logger *zap.Logger) (h processors.Handler, err error) {
	factory, ok := catalog[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor %q", name)
	}

	defer func() {
		if r := recover(); r != nil {
			h, err = nil, fmt.Errorf("processor %q panicked during load: %v", name, r)
		}
	}()

	h, err = factory(cfg, logger.With(zap.String("processor", name)))
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, fmt.Errorf("processor %q returned no handler", name)
	}
	return h, nil
}
