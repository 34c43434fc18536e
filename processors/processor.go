// Package processors defines the Handler contract the dispatcher invokes and the
// shared parameter helpers used by the built-in adapters.
package processors

import (
	"context"
)

// Handler executes a model invocation.
//
// Implementations must be safe for concurrent use; the dispatcher places no lock
// around them. Caller-correctable failures are returned as *services.APIError,
// anything else is treated as an internal error. An empty result must be reported
// as a NO_RESPONSE failure, never returned as success.
type Handler interface {
	Execute(ctx context.Context, modelID string, parameters []any, types []string) (result any, resultType string, err error)
}

// HandlerFunc adapts a function to the Handler interface
type HandlerFunc func(ctx context.Context, modelID string, parameters []any, types []string) (any, string, error)

// Execute calls f
func (f HandlerFunc) Execute(ctx context.Context, modelID string, parameters []any, types []string) (any, string, error) {
	return f(ctx, modelID, parameters, types)
}

// Semantic type tags used in call types and result datatypes
const (
	TypeString      = "string"
	TypeStringArray = "string[]"
	TypeUint64      = "uint64"
	TypeBytes       = "bytes"
)
