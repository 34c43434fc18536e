package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{KindMalformedBody, http.StatusBadRequest},
		{KindMissingField, http.StatusBadRequest},
		{KindInvalidCall, http.StatusBadRequest},
		{KindUnsupportedModel, http.StatusBadRequest},
		{KindHandler, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.HTTPStatus())
		})
	}
}

func TestDispatchError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{
			name:   "missing field matches sentinel",
			err:    MissingField("model"),
			target: ErrMissingField,
			want:   true,
		},
		{
			name:   "unsupported model matches sentinel",
			err:    UnsupportedModel("m.missing"),
			target: ErrUnsupportedModel,
			want:   true,
		},
		{
			name:   "different kinds do not match",
			err:    InvalidCall(),
			target: ErrMissingField,
			want:   false,
		},
		{
			name:   "wrapped dispatch error",
			err:    fmt.Errorf("outer: %w", Internal(errors.New("boom"))),
			target: ErrInternal,
			want:   true,
		},
		{
			name:   "plain error",
			err:    errors.New("plain"),
			target: ErrInternal,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestDispatchError_Messages(t *testing.T) {
	assert.Equal(t, "Missing required field: requestId", MissingField("requestId").Error())
	assert.Equal(t, "Call must contain parameters and types", InvalidCall().Error())
	assert.Equal(t, "Model m.missing not supported", UnsupportedModel("m.missing").Error())
	assert.Equal(t, "Invalid JSON in request body", MalformedBody(errors.New("eof")).Error())
	assert.Equal(t, "Processing error: divide by zero", Internal(errors.New("divide by zero")).Error())
}

func TestDispatchError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	dispatchErr := Internal(baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(dispatchErr))
	assert.True(t, errors.Is(dispatchErr, baseErr))
}

func TestClassify(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		assert.Nil(t, Classify(nil))
	})

	t.Run("api error keeps message verbatim", func(t *testing.T) {
		err := Classify(NewAPIError(CodeInvalidParameters, "bad prompt"))
		require.NotNil(t, err)

		assert.Equal(t, KindHandler, err.Kind)
		assert.Equal(t, "bad prompt", err.Message)
		assert.Equal(t, CodeInvalidParameters, GetErrorCode(err))
		assert.Equal(t, http.StatusBadRequest, StatusCode(err))
	})

	t.Run("wrapped api error", func(t *testing.T) {
		err := Classify(fmt.Errorf("adapter: %w", NewAPIError(CodeNoResponse, "empty")))
		require.NotNil(t, err)

		assert.Equal(t, KindHandler, err.Kind)
		assert.Equal(t, "empty", err.Message)
	})

	t.Run("untyped error is internal", func(t *testing.T) {
		err := Classify(errors.New("divide by zero"))
		require.NotNil(t, err)

		assert.Equal(t, KindInternal, err.Kind)
		assert.Contains(t, err.Message, "Processing error")
		assert.Contains(t, err.Message, "divide by zero")
		assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	})

	t.Run("dispatch error passes through", func(t *testing.T) {
		orig := UnsupportedModel("x")
		assert.Same(t, orig, Classify(orig))
	})
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, StatusCode(nil))
	assert.Equal(t, http.StatusBadRequest, StatusCode(MissingField("call")))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("unknown")))
}

func TestAPIError(t *testing.T) {
	cause := errors.New("upstream 503")
	err := WrapAPIError(CodeTextGenerationError, "Text generation failed", cause)

	assert.Equal(t, "Text generation failed: upstream 503", err.Error())
	assert.True(t, IsAPIError(err))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, IsAPIError(cause))
	assert.Equal(t, ErrorCode(""), GetErrorCode(cause))
}
