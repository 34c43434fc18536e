// Package dispatch validates request envelopes, resolves the model's handler and
// runs it on the execution pool, normalizing every outcome into a response envelope.
package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/upb/dtn-ai-router/internal/shared"
	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/processors"
	"github.com/upb/dtn-ai-router/services"
	"go.uber.org/zap"
)

const (
	// OutcomeSuccess labels a dispatch that returned data
	OutcomeSuccess = "success"

	// UnresolvedModel is the metrics model label for requests whose model id is not registered.
	// Caller-supplied ids never become label values, so the series count stays bounded by the registry.
	UnresolvedModel = "unresolved"
)

// Resolver looks up the handler for a model id
type Resolver interface {
	Resolve(modelID string) (processors.Handler, bool)
}

// Metrics receives dispatch outcomes
type Metrics interface {
	RecordDispatch(model, outcome string)
	ObserveHandler(model string, elapsed time.Duration)
}

// Recorder persists dispatch outcomes; implementations must not block
type Recorder interface {
	Record(record *models.DispatchRecord)
}

// Dispatcher is the execution core behind POST /api/request
type Dispatcher struct {
	resolver  Resolver
	validator *Validator
	pool      *Pool
	logger    *zap.Logger
	metrics   Metrics
	recorder  Recorder
}

// Option configures optional Dispatcher collaborators
type Option func(*Dispatcher)

// WithMetrics reports outcomes and handler latency to m
func WithMetrics(m Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithRecorder writes a dispatch record per request to r
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// NewDispatcher creates a new Dispatcher
func NewDispatcher(resolver Resolver, pool *Pool, logger *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		resolver:  resolver,
		validator: NewValidator(),
		pool:      pool,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch handles one raw request body.
//
// The returned envelope is always well formed. The error is nil on success and a
// *services.DispatchError otherwise; services.StatusCode maps it to the HTTP status.
func (d *Dispatcher) Dispatch(ctx context.Context, body []byte) (*models.ResponseEnvelope, error) {
	start := time.Now()

	env, err := d.validator.Parse(body)
	if err != nil {
		d.logger.Debug("rejected request envelope", zap.String("request_id", env.ID()), zap.Error(err))
		return d.finish(env, UnresolvedModel, start, nil, err)
	}

	requestID, model := env.ID(), env.ModelID()
	d.logger.Info("processing request", zap.String("request_id", requestID), zap.String("model", model))

	handler, ok := d.resolver.Resolve(model)
	if !ok {
		d.logger.Warn("unsupported model", zap.String("request_id", requestID), zap.String("model", model))
		return d.finish(env, UnresolvedModel, start, nil, services.UnsupportedModel(model))
	}

	ctx = shared.WithRequestID(ctx, requestID)
	params, types := env.Call.Parameters, env.Call.Types
	handlerStart := time.Now()
	result, err := d.pool.Submit(ctx, func(ctx context.Context) (any, string, error) {
		return handler.Execute(ctx, model, params, types)
	})
	if d.metrics != nil {
		d.metrics.ObserveHandler(model, time.Since(handlerStart))
	}
	if err == nil {
		err = result.Err
	}

	if err != nil {
		dispatchErr := classify(err)
		if services.IsAPIError(err) {
			d.logger.Warn("handler rejected request",
				zap.String("request_id", requestID),
				zap.String("model", model),
				zap.String("code", string(services.GetErrorCode(err))),
				zap.String("error", dispatchErr.Message))
		} else {
			d.logger.Error("handler failed",
				zap.String("request_id", requestID),
				zap.String("model", model),
				zap.Error(err))
		}
		return d.finish(env, model, start, nil, dispatchErr)
	}

	return d.finish(env, model, start, &result, nil)
}

// classify maps pool and handler failures onto the error taxonomy
func classify(err error) *services.DispatchError {
	if errors.Is(err, ErrHandlerTimeout) || errors.Is(err, ErrPoolClosed) {
		return services.Internal(err)
	}
	return services.Classify(err)
}

// finish builds the envelope and reports the outcome. modelLabel is the registered
// model id, or UnresolvedModel when the request never reached a handler.
func (d *Dispatcher) finish(env *models.RequestEnvelope, modelLabel string, start time.Time, result *Result, err error) (*models.ResponseEnvelope, error) {
	requestID, model := env.ID(), env.ModelID()

	var resp *models.ResponseEnvelope
	outcome := OutcomeSuccess
	if err != nil {
		resp = models.Failure(requestID, err.Error())
		outcome = services.KindOf(err).String()
	} else {
		resp = models.Success(requestID, result.Data, result.DataType)
	}

	if d.metrics != nil {
		d.metrics.RecordDispatch(modelLabel, outcome)
	}

	if d.recorder != nil {
		record := models.NewDispatchRecord(requestID, model, services.StatusCode(err), time.Since(start))
		if err != nil {
			record.WithError(outcome, err.Error())
		}
		d.recorder.Record(record)
	}

	return resp, err
}
