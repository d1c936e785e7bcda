package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
	"github.com/mrlokans/bookvault/internal/scheduler"
	"github.com/mrlokans/bookvault/internal/services"
	"github.com/mrlokans/bookvault/internal/tasks"
)

// BackupRunner is the part of services.BackupService the controller uses.
type BackupRunner interface {
	BusyChecker
	Cancel() bool
	Progress(typ entities.SyncType) (*entities.SyncProgress, error)
	Export(ctx context.Context, req services.ExportRequest) (backup.ExportResults, error)
	Import(ctx context.Context, req services.ImportRequest) (backup.ImportResults, error)
}

// TaskEnqueuer saves background tasks. tasks.Client implements it.
type TaskEnqueuer interface {
	Enqueue(task backlite.Task) (string, error)
}

// BackupsController starts exports and imports and reports their progress.
type BackupsController struct {
	backups   BackupRunner
	queue     TaskEnqueuer
	backupDir string
	kind      backup.ContainerKind
	logger    *slog.Logger
}

// NewBackupsController creates a BackupsController. Without a queue the
// operations run on a goroutine of the server.
func NewBackupsController(backups BackupRunner, queue TaskEnqueuer, backupDir string, kind backup.ContainerKind, logger *slog.Logger) *BackupsController {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupsController{
		backups:   backups,
		queue:     queue,
		backupDir: backupDir,
		kind:      kind,
		logger:    logger,
	}
}

// SelectionRequest is the record selection shared by both operations.
type SelectionRequest struct {
	NoBooks       bool `json:"no_books"`
	NoCovers      bool `json:"no_covers"`
	NoStyles      bool `json:"no_styles"`
	NoPreferences bool `json:"no_preferences"`
	Sync          bool `json:"sync"`
}

func (s SelectionRequest) options() backup.Options {
	opts := backup.DefaultOptions()
	opts.Books = !s.NoBooks
	opts.Covers = !s.NoCovers
	opts.Styles = !s.NoStyles
	opts.Preferences = !s.NoPreferences
	opts.Sync = s.Sync
	return opts
}

// ExportRequest is the body of POST /api/backups/export. Path defaults to
// a timestamped file in the backup directory.
type ExportRequest struct {
	SelectionRequest
	Kind        string `json:"kind"`
	Path        string `json:"path"`
	BooksFormat string `json:"books_format"`
}

// ImportRequest is the body of POST /api/backups/import.
type ImportRequest struct {
	SelectionRequest
	Kind   string `json:"kind"`
	Path   string `json:"path" binding:"required"`
	Policy string `json:"policy"`
}

// Export handles POST /api/backups/export
func (bc *BackupsController) Export(c *gin.Context) {
	var req ExportRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	kind := bc.kind
	if req.Kind != "" {
		var ok bool
		if kind, ok = backup.ParseContainerKind(req.Kind); !ok || !backup.CanWrite(kind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot export %q archives", req.Kind)})
			return
		}
	}
	enc := backup.EncodingUnknown
	if req.BooksFormat != "" {
		var ok bool
		if enc, ok = backup.ParseEncoding(req.BooksFormat); !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown books format %q", req.BooksFormat)})
			return
		}
	}
	path := req.Path
	if path == "" {
		path = filepath.Join(bc.backupDir, scheduler.ArchiveName(kind, time.Now()))
	}

	if bc.backups.Busy() {
		c.JSON(http.StatusConflict, gin.H{"error": services.ErrBusy.Error()})
		return
	}

	task := tasks.NewExportBackupTask(kind, path, enc, req.options())
	if bc.queue == nil {
		svcReq, err := task.Request()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go func() {
			if _, err := bc.backups.Export(context.Background(), svcReq); err != nil {
				bc.logger.Error("export failed", "path", path, "error", err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"success": true, "path": path, "message": "export started"})
		return
	}

	id, err := bc.queue.Enqueue(task)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": id, "path": path, "message": "task enqueued"})
}

// Import handles POST /api/backups/import
func (bc *BackupsController) Import(c *gin.Context) {
	var req ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := backup.ContainerUnknown
	if req.Kind != "" && req.Kind != "auto" {
		var ok bool
		if kind, ok = backup.ParseContainerKind(req.Kind); !ok || !backup.CanRead(kind) {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("cannot import %q archives", req.Kind)})
			return
		}
	}
	policy, err := backup.ParseMergePolicy(req.Policy)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if info, err := os.Stat(req.Path); err != nil || info.IsDir() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "archive not found: " + req.Path})
		return
	}

	if bc.backups.Busy() {
		c.JSON(http.StatusConflict, gin.H{"error": services.ErrBusy.Error()})
		return
	}

	opts := req.options()
	opts.Policy = policy
	task := tasks.NewImportBackupTask(kind, req.Path, opts)
	if bc.queue == nil {
		svcReq, err := task.Request()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		go func() {
			if _, err := bc.backups.Import(context.Background(), svcReq); err != nil {
				bc.logger.Error("import failed", "path", req.Path, "error", err)
			}
		}()
		c.JSON(http.StatusAccepted, gin.H{"success": true, "message": "import started"})
		return
	}

	id, err := bc.queue.Enqueue(task)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"success": true, "task_id": id, "message": "task enqueued"})
}

// Progress handles GET /api/backups/progress?type=export|import
func (bc *BackupsController) Progress(c *gin.Context) {
	typ := entities.SyncType(c.DefaultQuery("type", string(entities.SyncTypeExport)))
	if typ != entities.SyncTypeExport && typ != entities.SyncTypeImport {
		c.JSON(http.StatusBadRequest, gin.H{"error": "type must be export or import"})
		return
	}

	progress, err := bc.backups.Progress(typ)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if progress == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no " + string(typ) + " has run yet"})
		return
	}
	c.JSON(http.StatusOK, progress)
}

// Cancel handles POST /api/backups/cancel
func (bc *BackupsController) Cancel(c *gin.Context) {
	if !bc.backups.Cancel() {
		c.JSON(http.StatusConflict, gin.H{"error": errNothingRunning.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "cancellation requested"})
}

var errNothingRunning = errors.New("no backup operation is running")
