package http

import (
	"log/slog"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/database"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Database *database.Database

	// Backups runs exports and imports; nil disables the backup routes.
	Backups BackupRunner

	// TaskQueue and TaskStatus are nil when the task queue is disabled.
	// Operations then run on a server goroutine.
	TaskQueue  TaskEnqueuer
	TaskStatus TaskStatuser

	// BackupDir and BackupKind apply to exports that name no path or kind.
	BackupDir  string
	BackupKind backup.ContainerKind

	Version string
	Logger  *slog.Logger
}
