package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/processors"
	"go.uber.org/zap"
)

func constHandler(value string) processors.Handler {
	return processors.HandlerFunc(func(ctx context.Context, modelID string, parameters []any, types []string) (any, string, error) {
		return value, "string", nil
	})
}

func run(t *testing.T, h processors.Handler) any {
	t.Helper()
	out, _, err := h.Execute(context.Background(), "m", nil, nil)
	require.NoError(t, err)
	return out
}

func TestRegistry_RegisterAndResolve(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Register("m.b", constHandler("b")))
	require.NoError(t, reg.Register("m.a", constHandler("a")))

	h, ok := reg.Resolve("m.a")
	require.True(t, ok)
	assert.Equal(t, "a", run(t, h))

	_, ok = reg.Resolve("m.missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"m.a", "m.b"}, reg.Models())
	assert.Equal(t, 2, reg.Count())
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Register("m.dup", constHandler("first")))
	require.NoError(t, reg.Register("m.dup", constHandler("second")))

	h, ok := reg.Resolve("m.dup")
	require.True(t, ok)
	assert.Equal(t, "second", run(t, h))
	assert.Equal(t, 1, reg.Count())
}

func TestRegistry_RejectsInvalidRegistration(t *testing.T) {
	reg := New()

	assert.ErrorIs(t, reg.Register("", constHandler("x")), ErrEmptyModelID)
	assert.ErrorIs(t, reg.Register("m.x", nil), ErrNilHandler)
	assert.Zero(t, reg.Count())
}

func TestRegistry_EmptyModels(t *testing.T) {
	models := New().Models()
	assert.NotNil(t, models)
	assert.Empty(t, models)
}

func TestBuild(t *testing.T) {
	calls := map[string]int{}
	catalog := Catalog{
		"good": func(cfg *config.Config, logger *zap.Logger) (processors.Handler, error) {
			calls["good"]++
			return constHandler("good"), nil
		},
		"broken": func(cfg *config.Config, logger *zap.Logger) (processors.Handler, error) {
			calls["broken"]++
			return nil, errors.New("missing credentials file")
		},
		"panics": func(cfg *config.Config, logger *zap.Logger) (processors.Handler, error) {
			panic("init exploded")
		},
		"nil": func(cfg *config.Config, logger *zap.Logger) (processors.Handler, error) {
			return nil, nil
		},
	}

	entries := []config.ModelEntry{
		{Model: "m.one", Processor: "good"},
		{Model: "m.two", Processor: "good"},
		{Model: "m.bad", Processor: "broken"},
		{Model: "m.bad2", Processor: "broken"},
		{Model: "m.unknown", Processor: "does-not-exist"},
		{Model: "m.panic", Processor: "panics"},
		{Model: "m.nil", Processor: "nil"},
		{Model: "", Processor: "good"},
		{Model: "m.noproc", Processor: ""},
	}

	reg := Build(entries, catalog, &config.Config{}, zap.NewNop())

	assert.Equal(t, []string{"m.one", "m.two"}, reg.Models())
	assert.Equal(t, 1, calls["good"], "processor should be built once and shared")
	assert.Equal(t, 1, calls["broken"], "failed processor should not be retried")

	_, ok := reg.Resolve("m.bad")
	assert.False(t, ok)
	_, ok = reg.Resolve("m.unknown")
	assert.False(t, ok)
}

func TestBuild_NoEntries(t *testing.T) {
	reg := Build(nil, Catalog{}, &config.Config{}, zap.NewNop())
	assert.Zero(t, reg.Count())
	assert.Empty(t, reg.Models())
}
