package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/bookvault/internal/config"
	http_controllers "github.com/mrlokans/bookvault/internal/http"
	"github.com/mrlokans/bookvault/internal/logging"
	"github.com/mrlokans/bookvault/internal/scheduler"
	"github.com/mrlokans/bookvault/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM.
func Serve(router *gin.Engine, cfg *config.Config, logger *slog.Logger, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-quit:
	}
	logger.Info("shutting down server", "timeout", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so no new operation starts mid-shutdown.
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server exiting")
	return nil
}

// Run starts the API server together with the task queue and the backup
// scheduler.
func Run(cfg *config.Config, version string) error {
	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format)
	logger.Info("starting bookvault", "version", version)

	kind, err := BackupKind(cfg)
	if err != nil {
		return err
	}
	enc, err := BooksEncoding(cfg)
	if err != nil {
		return err
	}

	app, err := Open(cfg, version, logger)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("error closing database", "error", err)
		}
	}()

	routerCfg := http_controllers.RouterConfig{
		Database:   app.Catalog.Database,
		Backups:    app.Backups,
		BackupDir:  cfg.Backup.Dir,
		BackupKind: kind,
		Version:    version,
		Logger:     logger,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var taskClient *tasks.Client
	if cfg.Tasks.Enabled {
		taskCfg := tasks.DefaultConfig()
		taskCfg.Workers = cfg.Tasks.Workers
		taskCfg.TaskTimeout = cfg.Tasks.TaskTimeout
		taskCfg.ReleaseAfter = cfg.Tasks.ReleaseAfter
		taskCfg.CleanupInterval = cfg.Tasks.CleanupInterval

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				logger.Error("error closing task client", "error", err)
			}
		}()

		taskClient.Register(
			tasks.NewExportBackupQueue(app.Backups, logger),
			tasks.NewImportBackupQueue(app.Backups, logger),
		)
		go taskClient.Start(ctx)

		routerCfg.TaskQueue = taskClient
		routerCfg.TaskStatus = taskClient
	}

	backupScheduler := scheduler.NewBackupScheduler(app.Backups, app.Settings, kind, enc, logger)
	if err := backupScheduler.Start(ctx); err != nil {
		logger.Error("failed to start backup scheduler", "error", err)
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(shutdownCtx context.Context) {
		app.Backups.Cancel()
		backupScheduler.Stop()
		if taskClient != nil {
			taskClient.Stop(shutdownCtx)
		}
		cancel()
	}

	return Serve(router, cfg, logger, onShutdown)
}
