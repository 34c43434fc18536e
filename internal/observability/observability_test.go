package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/dtn-ai-router/config"
)

func TestNewLogger(t *testing.T) {
	t.Run("json logger", func(t *testing.T) {
		logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "info", LogFormat: "json"})
		require.NoError(t, err)
		require.NotNil(t, logger)
		_ = logger.Sync()
	})

	t.Run("console logger", func(t *testing.T) {
		logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "debug", LogFormat: "console"})
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("invalid log level", func(t *testing.T) {
		logger, err := NewLogger(config.ObservabilityConfig{LogLevel: "verbose", LogFormat: "json"})
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("writes to rotating file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "router.log")
		logger, err := NewLogger(config.ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			LogFile:           path,
			LogFileMaxSizeMB:  1,
			LogFileMaxBackups: 1,
			LogFileMaxAgeDays: 1,
		})
		require.NoError(t, err)

		logger.Info("processing request")
		logger.Debug("below level")
		_ = logger.Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"msg":"processing request"`)
		assert.NotContains(t, string(data), "below level")
	})
}

func TestMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordDispatch("m.echo", "success")
	m.RecordDispatch("m.echo", "success")
	m.RecordDispatch("m.missing", "unsupported_model")
	m.ObserveHandler("m.echo", 250*time.Millisecond)
	m.AddPoolInFlight(1)
	m.AddPoolInFlight(1)
	m.AddPoolInFlight(1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("m.echo", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("m.missing", "unsupported_model")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.poolInFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(m.handlerDuration))

	m.AddPoolInFlight(-1)
	m.AddPoolInFlight(-1)
	m.AddPoolInFlight(-1)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.poolInFlight))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics(nil)
	m.RecordDispatch("m.echo", "success")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `dtn_ai_router_requests_total{model="m.echo",outcome="success"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}
