// Package echo implements a handler that returns its prompt unchanged.
// It needs no upstream and is used for smoke tests and local runs.
package echo

import (
	"context"

	"github.com/upb/dtn-ai-router/processors"
	"github.com/upb/dtn-ai-router/services"
)

// ProcessorName is the catalog key for this handler
const ProcessorName = "echo"

// Handler echoes parameter 0 back as a string
type Handler struct{}

// New creates a new echo handler
func New() *Handler {
	return &Handler{}
}

// Execute returns the prompt as ("<prompt>", "string")
func (h *Handler) Execute(ctx context.Context, modelID string, parameters []any, types []string) (any, string, error) {
	prompt, err := processors.Prompt(parameters, types, true)
	if err != nil {
		return nil, "", err
	}
	if prompt == "" {
		return nil, "", services.NewAPIError(services.CodeNoResponse, "No response generated for empty prompt")
	}
	return prompt, processors.TypeString, nil
}

var _ processors.Handler = (*Handler)(nil)
