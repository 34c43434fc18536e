package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/processors"
	"github.com/upb/dtn-ai-router/processors/echo"
	"github.com/upb/dtn-ai-router/processors/gemini"
	"github.com/upb/dtn-ai-router/processors/openai"
	"github.com/upb/dtn-ai-router/services/registry"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func testConfig(metrics bool) *config.Config {
	return &config.Config{
		Environment: "test",
		ModelsFile:  "config.yaml",
		Server: config.ServerConfig{
			Host:         "127.0.0.1",
			Port:         8026,
			MaxBodyBytes: 1 << 20,
		},
		Dispatch: config.DispatchConfig{
			Workers:   4,
			QueueSize: 8,
		},
		Observability: config.ObservabilityConfig{
			LogLevel:       "error",
			LogFormat:      "json",
			MetricsEnabled: metrics,
			MetricsPort:    9090,
		},
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()

	for _, name := range []string{echo.ProcessorName, openai.ProcessorName, gemini.ProcessorName} {
		factory, ok := catalog[name]
		require.True(t, ok, "missing processor %s", name)

		h, err := factory(testConfig(false), zap.NewNop())
		require.NoError(t, err)
		assert.NotNil(t, h)
	}
}

func TestNewDependencies(t *testing.T) {
	entries := []config.ModelEntry{
		{Model: "m.echo", Processor: echo.ProcessorName},
		{Model: "m.text", Processor: openai.ProcessorName},
		{Model: "m.broken", Processor: "broken"},
		{Model: "m.unknown", Processor: "does-not-exist"},
		{Model: "", Processor: echo.ProcessorName},
	}
	catalog := DefaultCatalog()
	catalog["broken"] = func(*config.Config, *zap.Logger) (processors.Handler, error) {
		return nil, errors.New("missing credentials")
	}

	t.Run("without database or metrics", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), testConfig(false), zaptest.NewLogger(t), entries, catalog)
		require.NoError(t, err)

		assert.Equal(t, []string{"m.echo", "m.text"}, deps.Registry.Models())
		assert.Nil(t, deps.DB)
		assert.Nil(t, deps.DispatchLog)
		assert.Nil(t, deps.Metrics)
		assert.Nil(t, deps.Repositories.DispatchLog)
		require.NotNil(t, deps.Dispatcher)
		assert.Equal(t, 4, deps.Pool.Stats().Workers)

		require.NoError(t, deps.Close(time.Second))
		assert.True(t, deps.Pool.Stats().Closed)
	})

	t.Run("with metrics", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), testConfig(true), zaptest.NewLogger(t), entries, catalog)
		require.NoError(t, err)
		t.Cleanup(func() { _ = deps.Close(time.Second) })

		require.NotNil(t, deps.Metrics)
		assert.NotNil(t, deps.Metrics.Handler())
	})

	t.Run("empty models file still starts", func(t *testing.T) {
		deps, err := NewDependencies(context.Background(), testConfig(false), zaptest.NewLogger(t), nil, registry.Catalog{})
		require.NoError(t, err)
		t.Cleanup(func() { _ = deps.Close(time.Second) })

		assert.Empty(t, deps.Registry.Models())
	})
}

func TestDependencies_CloseTwice(t *testing.T) {
	deps, err := NewDependencies(context.Background(), testConfig(false), zap.NewNop(), nil, DefaultCatalog())
	require.NoError(t, err)

	require.NoError(t, deps.Close(time.Second))
	assert.Error(t, deps.Close(time.Second))
}
