// Package registry maps model identifiers to the handlers that serve them.
// The table is populated once at startup and is read-only afterwards.
package registry

import (
	"errors"
	"sort"
	"sync"

	"github.com/upb/dtn-ai-router/processors"
)

var (
	// ErrEmptyModelID is returned when registering a blank model id
	ErrEmptyModelID = errors.New("model id cannot be empty")

	// ErrNilHandler is returned when registering a nil handler
	ErrNilHandler = errors.New("handler cannot be nil")
)

// Registry holds the model -> handler table
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]processors.Handler
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		handlers: make(map[string]processors.Handler),
	}
}

// Register binds modelID to handler. A later registration for the same id replaces the earlier one.
func (r *Registry) Register(modelID string, handler processors.Handler) error {
	if modelID == "" {
		return ErrEmptyModelID
	}
	if handler == nil {
		return ErrNilHandler
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[modelID] = handler
	return nil
}

// Resolve returns the handler registered for modelID
func (r *Registry) Resolve(modelID string) (processors.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.handlers[modelID]
	return h, ok
}

// Models returns every registered model id in lexical order
func (r *Registry) Models() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.handlers))
	for model := range r.handlers {
		models = append(models, model)
	}
	sort.Strings(models)

	return models
}

// Count returns the number of registered models
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.handlers)
}
