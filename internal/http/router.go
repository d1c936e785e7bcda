package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(requestLogger(logger))
	router.Use(gin.Recovery())

	var busy BusyChecker
	if cfg.Backups != nil {
		busy = cfg.Backups
	}
	health := NewHealthController(cfg.Database, busy, cfg.Version)
	router.GET("/health", health.Status)

	api := router.Group("/api")

	if cfg.Backups != nil {
		backups := NewBackupsController(cfg.Backups, cfg.TaskQueue, cfg.BackupDir, cfg.BackupKind, logger)
		api.POST("/backups/export", backups.Export)
		api.POST("/backups/import", backups.Import)
		api.POST("/backups/cancel", backups.Cancel)
		api.GET("/backups/progress", backups.Progress)
	}

	if cfg.TaskStatus != nil {
		tasksController := NewTasksController(cfg.TaskStatus)
		api.GET("/tasks/types", tasksController.ListTaskTypes)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start).Round(time.Microsecond),
		)
	}
}
