package dispatch

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/upb/dtn-ai-router/models"
	"github.com/upb/dtn-ai-router/services"
)

// envelopeFields is the order in which missing top-level keys are reported
var envelopeFields = []string{"requestId", "model", "call"}

// Validator decodes and shape-checks request envelopes.
// It never inspects parameter counts or type tags; that belongs to the handler.
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a validator that reports fields by their JSON names
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v}
}

// Parse decodes body into an envelope and checks that the required keys are present.
//
// The returned envelope is non-nil whenever the body was a JSON object, even on
// failure, so the caller can still echo a recovered request id.
func (v *Validator) Parse(body []byte) (*models.RequestEnvelope, error) {
	env, err := decode(body)
	if err != nil {
		var typeErr *json.UnmarshalTypeError
		if env != nil && errors.As(err, &typeErr) && isCallPath(typeErr.Field) {
			return env, callShapeError(env)
		}
		return env, services.MalformedBody(err)
	}

	if err := v.validate.Struct(env); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return env, services.MalformedBody(err)
		}
		return env, shapeError(validationErrors)
	}

	return env, nil
}

// decode reads exactly one JSON object. Numbers are kept as json.Number so uint64 parameters survive intact.
func decode(body []byte) (*models.RequestEnvelope, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var env models.RequestEnvelope
	if err := dec.Decode(&env); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			// Decoding continues past a type mismatch, so the request id may still be usable
			return &env, err
		}
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return &env, fmt.Errorf("unexpected data after request body")
	}

	return &env, nil
}

func shapeError(errs validator.ValidationErrors) error {
	missing := make(map[string]bool, len(errs))
	invalidCall := false
	for _, fe := range errs {
		if isCallField(fe.Namespace()) {
			invalidCall = true
			continue
		}
		missing[fe.Field()] = true
	}

	for _, field := range envelopeFields {
		if missing[field] {
			return services.MissingField(field)
		}
	}
	if invalidCall {
		return services.InvalidCall()
	}
	return services.MalformedBody(errs)
}

// callShapeError reports a call that is present but not an object of lists.
// Absent keys ahead of call in the envelope order are still reported first.
func callShapeError(env *models.RequestEnvelope) error {
	if env.RequestID == nil {
		return services.MissingField("requestId")
	}
	if env.Model == nil {
		return services.MissingField("model")
	}
	return services.InvalidCall()
}

// isCallPath reports whether a decode error path such as "call" or "call.types" is inside the call object
func isCallPath(field string) bool {
	return field == "call" || strings.HasPrefix(field, "call.")
}

// isCallField reports whether the namespace points inside the call object, e.g. "RequestEnvelope.call.types"
func isCallField(namespace string) bool {
	parts := strings.Split(namespace, ".")
	return len(parts) > 2 && parts[1] == "call"
}
