package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/upb/dtn-ai-router/app"
	"github.com/upb/dtn-ai-router/config"
	"github.com/upb/dtn-ai-router/internal/observability"
	"github.com/upb/dtn-ai-router/routes"
	"go.uber.org/zap"
)

func main() {
	logger, err := initLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Error("dtn-ai-router exited with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

// initLogger builds the process logger from LOG_LEVEL, LOG_FORMAT and LOG_FILE
func initLogger() (*zap.Logger, error) {
	return observability.NewLogger(config.ObservabilityConfig{
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		LogFile:           os.Getenv("LOG_FILE"),
		LogFileMaxSizeMB:  100,
		LogFileMaxBackups: 5,
		LogFileMaxAgeDays: 14,
	})
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.New(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// .env may have changed the logging settings; rebuild from the loaded config
	cfgLogger, err := observability.NewLogger(cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer cfgLogger.Sync()
	logger = cfgLogger

	modelsFile, err := config.LoadModelsFile(cfg.ModelsFile)
	if err != nil {
		return err
	}
	logger.Info("loaded models file",
		zap.String("path", cfg.ModelsFile),
		zap.Int("entries", len(modelsFile.Models)))

	deps, err := app.NewDependencies(ctx, cfg, logger, modelsFile.Models, app.DefaultCatalog())
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           routes.SetupRoutes(deps),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	var adminSrv *http.Server
	if cfg.Observability.MetricsEnabled {
		adminSrv = &http.Server{
			Addr:              cfg.MetricsAddress(),
			Handler:           routes.SetupAdminRoutes(deps),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}

	errCh := make(chan error, 2)
	go serve(srv, "api", logger, errCh)
	if adminSrv != nil {
		go serve(adminSrv, "admin", logger, errCh)
	}

	logger.Info("dtn-ai-router started",
		zap.String("address", srv.Addr),
		zap.String("environment", cfg.Environment),
		zap.Strings("models", deps.Registry.Models()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("api server shutdown failed", zap.Error(err))
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown failed", zap.Error(err))
		}
	}

	if err := deps.Close(cfg.Server.ShutdownTimeout); err != nil {
		logger.Error("failed to release dependencies", zap.Error(err))
	}

	logger.Info("dtn-ai-router stopped")
	return serveErr
}

func serve(srv *http.Server, name string, logger *zap.Logger, errCh chan<- error) {
	logger.Info("listening", zap.String("server", name), zap.String("address", srv.Addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s server: %w", name, err)
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
