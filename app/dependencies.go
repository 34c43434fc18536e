package app

import (
	"context"
	"fmt"
	"time"

	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/internal/observability"
	"github.com/upb/dtn-ai-router/repositories"
	"github.com/upb/dtn-ai-router/repositories/postgres"
	"github.com/upb/dtn-ai-router/services/audit"
	"github.com/upb/dtn-ai-router/services/dispatch"
	"github.com/upb/dtn-ai-router/services/registry"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies.
// This is the central wiring point; nothing below it reaches for globals.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger
	DB     *postgres.DB // nil when DATABASE_URL is unset

	// Repositories
	Repositories repositories.Repositories

	// Dispatch core
	Registry   *registry.Registry
	Pool       *dispatch.Pool
	Dispatcher *dispatch.Dispatcher

	// Optional collaborators
	Metrics     *observability.Metrics    // nil when metrics are disabled
	DispatchLog *audit.DispatchLogService // nil without a database
}

// NewDependencies creates and wires up all application dependencies.
// entries are the parsed models file; catalog names the processors they may refer to.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger, entries []config.ModelEntry, catalog registry.Catalog) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Database != nil {
		if err := deps.initDatabase(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	} else {
		logger.Info("DATABASE_URL not set, dispatch log disabled")
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics(nil)
	}

	deps.initDispatch(cfg, entries, catalog)

	if deps.Registry.Count() == 0 {
		logger.Warn("no models registered, every request will be rejected as unsupported")
	}

	logger.Info("all dependencies initialized successfully",
		zap.Int("models", deps.Registry.Count()),
		zap.Bool("dispatch_log", deps.DispatchLog != nil),
		zap.Bool("metrics", deps.Metrics != nil))
	return deps, nil
}

// initDatabase opens PostgreSQL, ensures the schema and starts the dispatch log writer
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	db, err := postgres.NewDB(*cfg.Database, d.Logger)
	if err != nil {
		return err
	}

	if err := db.InitSchema(ctx); err != nil {
		db.Close()
		return err
	}

	d.DB = db
	d.Repositories = repositories.Repositories{
		DispatchLog: postgres.NewDispatchLogRepository(db, d.Logger),
	}

	d.DispatchLog = audit.NewDispatchLogService(d.Repositories.DispatchLog, d.Logger, audit.Config{
		BufferSize:  cfg.Database.LogBufferSize,
		WorkerCount: cfg.Database.LogWorkers,
	})
	if err := d.DispatchLog.Start(); err != nil {
		db.Close()
		return fmt.Errorf("failed to start dispatch log: %w", err)
	}

	return nil
}

// initDispatch builds the registry, the execution pool and the dispatcher
func (d *Dependencies) initDispatch(cfg *config.Config, entries []config.ModelEntry, catalog registry.Catalog) {
	d.Registry = registry.Build(entries, catalog, cfg, d.Logger)

	var observer func(int64)
	if d.Metrics != nil {
		observer = d.Metrics.AddPoolInFlight
	}
	d.Pool = dispatch.NewPool(dispatch.PoolConfig{
		Workers:        cfg.Dispatch.Workers,
		QueueSize:      cfg.Dispatch.QueueSize,
		HandlerTimeout: cfg.Dispatch.HandlerTimeout,
	}, d.Logger, observer)

	var opts []dispatch.Option
	if d.Metrics != nil {
		opts = append(opts, dispatch.WithMetrics(d.Metrics))
	}
	if d.DispatchLog != nil {
		opts = append(opts, dispatch.WithRecorder(d.DispatchLog))
	}
	d.Dispatcher = dispatch.NewDispatcher(d.Registry, d.Pool, d.Logger, opts...)
}

// Close drains in-flight work and releases resources.
// The pool goes first so its last dispatches still reach the dispatch log.
func (d *Dependencies) Close(timeout time.Duration) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if d.Pool != nil {
		if err := d.Pool.Close(timeout); err != nil {
			d.Logger.Error("failed to close execution pool", zap.Error(err))
			keep(err)
		}
	}

	if d.DispatchLog != nil {
		if err := d.DispatchLog.Stop(timeout); err != nil {
			d.Logger.Error("failed to stop dispatch log", zap.Error(err))
			keep(err)
		}
	}

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("failed to close database", zap.Error(err))
			keep(err)
		}
	}

	return firstErr
}
