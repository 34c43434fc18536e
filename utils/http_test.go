package utils

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSON(t *testing.T) {
	t.Run("with body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteJSON(rec, http.StatusAccepted, map[string]string{"k": "v"}))

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"k":"v"}`, rec.Body.String())
	})

	t.Run("nil body", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, WriteJSON(rec, http.StatusNoContent, nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Body.String())
	})

	t.Run("unencodable body writes nothing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		err := WriteJSON(rec, http.StatusOK, map[string]float64{"v": math.NaN()})

		var encodeErr *EncodeError
		require.ErrorAs(t, err, &encodeErr)
		assert.False(t, rec.Flushed)
		assert.Empty(t, rec.Header().Get("Content-Type"))
		assert.Empty(t, rec.Body.String())

		require.NoError(t, WriteJSON(rec, http.StatusInternalServerError, ErrorResponse{Error: "internal", Message: "m"}))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestWriteErrors(t *testing.T) {
	testCases := []struct {
		name     string
		write    func(http.ResponseWriter) error
		status   int
		errorKey string
		message  string
	}{
		{"not found default", func(w http.ResponseWriter) error { return WriteNotFound(w, "") }, http.StatusNotFound, "not_found", "Resource not found"},
		{"not found custom", func(w http.ResponseWriter) error { return WriteNotFound(w, "no such endpoint") }, http.StatusNotFound, "not_found", "no such endpoint"},
		{"method not allowed", func(w http.ResponseWriter) error { return WriteMethodNotAllowed(w, "") }, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, tc.write(rec))

			assert.Equal(t, tc.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tc.errorKey, body.Error)
			assert.Equal(t, tc.message, body.Message)
		})
	}
}
