package tasks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/services"
)

// Queue names.
const (
	QueueBackupExport = "backup_export"
	QueueBackupImport = "backup_import"
)

const backupTimeout = 2 * time.Hour

// BackupRunner runs exports and imports. services.BackupService
// implements it.
type BackupRunner interface {
	Export(ctx context.Context, req services.ExportRequest) (backup.ExportResults, error)
	Import(ctx context.Context, req services.ImportRequest) (backup.ImportResults, error)
}

// ExportBackupTask writes an archive to a local path. Flags carries the
// record selection in the legacy bitmask encoding.
type ExportBackupTask struct {
	Kind          string `json:"kind"`
	Path          string `json:"path"`
	BooksEncoding string `json:"books_encoding,omitempty"`
	Flags         int    `json:"flags"`
	Sync          bool   `json:"sync,omitempty"`
}

// NewExportBackupTask builds a task payload from options.
func NewExportBackupTask(kind backup.ContainerKind, path string, enc backup.RecordEncoding, opts backup.Options) ExportBackupTask {
	task := ExportBackupTask{
		Kind:  kind.String(),
		Path:  path,
		Flags: opts.LegacyImportFlags(),
		Sync:  opts.Sync,
	}
	if enc != backup.EncodingUnknown {
		task.BooksEncoding = enc.String()
	}
	return task
}

// Config returns the queue configuration for export tasks. Exports are
// never retried; a failed run is reported and the user starts a new one.
func (t ExportBackupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueBackupExport,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     backupTimeout,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Request decodes the payload into a service request.
func (t ExportBackupTask) Request() (services.ExportRequest, error) {
	kind, ok := backup.ParseContainerKind(t.Kind)
	if !ok {
		return services.ExportRequest{}, fmt.Errorf("unknown archive kind %q", t.Kind)
	}
	if t.Path == "" {
		return services.ExportRequest{}, fmt.Errorf("export path is required")
	}
	req := services.ExportRequest{
		Kind:        kind,
		Destination: backup.FileDestination(t.Path),
		Options:     backup.OptionsFromLegacyFlags(t.Flags),
	}
	req.Options.Sync = t.Sync
	if t.BooksEncoding != "" {
		enc, ok := backup.ParseEncoding(t.BooksEncoding)
		if !ok {
			return services.ExportRequest{}, fmt.Errorf("unknown books encoding %q", t.BooksEncoding)
		}
		req.BooksEncoding = enc
	}
	return req, nil
}

// ExportBackupProcessor creates a processor function for ExportBackupTask.
func ExportBackupProcessor(runner BackupRunner, logger *slog.Logger) backlite.QueueProcessor[ExportBackupTask] {
	return func(ctx context.Context, task ExportBackupTask) error {
		if runner == nil {
			return fmt.Errorf("backup service not configured")
		}
		req, err := task.Request()
		if err != nil {
			return err
		}

		results, err := runner.Export(ctx, req)
		if err != nil {
			return fmt.Errorf("export backup: %w", err)
		}
		logger.Info("export task complete",
			"file", filepath.Base(task.Path),
			"books", results.Books,
			"covers", results.Covers,
			"cancelled", results.Cancelled,
		)
		return nil
	}
}

// NewExportBackupQueue creates a backlite queue for export tasks.
func NewExportBackupQueue(runner BackupRunner, logger *slog.Logger) backlite.Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return backlite.NewQueue(ExportBackupProcessor(runner, logger))
}

// ImportBackupTask restores an archive from a local path. An empty Kind
// sniffs the file.
type ImportBackupTask struct {
	Kind  string `json:"kind,omitempty"`
	Path  string `json:"path"`
	Flags int    `json:"flags"`
	Sync  bool   `json:"sync,omitempty"`

	// RemoveAfter deletes the file once the import finished, for uploads
	// staged by the HTTP handler.
	RemoveAfter bool `json:"remove_after,omitempty"`
}

// NewImportBackupTask builds a task payload from options.
func NewImportBackupTask(kind backup.ContainerKind, path string, opts backup.Options) ImportBackupTask {
	task := ImportBackupTask{
		Path:  path,
		Flags: opts.LegacyImportFlags(),
		Sync:  opts.Sync,
	}
	if kind != backup.ContainerUnknown {
		task.Kind = kind.String()
	}
	return task
}

// Config returns the queue configuration for import tasks.
func (t ImportBackupTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        QueueBackupImport,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     backupTimeout,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// Request decodes the payload into a service request.
func (t ImportBackupTask) Request() (services.ImportRequest, error) {
	if t.Path == "" {
		return services.ImportRequest{}, fmt.Errorf("import path is required")
	}
	req := services.ImportRequest{
		Kind:    backup.ContainerUnknown,
		Source:  backup.FileSource(t.Path),
		Options: backup.OptionsFromLegacyFlags(t.Flags),
	}
	req.Options.Sync = t.Sync
	if t.Kind != "" {
		kind, ok := backup.ParseContainerKind(t.Kind)
		if !ok {
			return services.ImportRequest{}, fmt.Errorf("unknown archive kind %q", t.Kind)
		}
		req.Kind = kind
	}
	return req, nil
}

// ImportBackupProcessor creates a processor function for ImportBackupTask.
func ImportBackupProcessor(runner BackupRunner, logger *slog.Logger) backlite.QueueProcessor[ImportBackupTask] {
	return func(ctx context.Context, task ImportBackupTask) error {
		if runner == nil {
			return fmt.Errorf("backup service not configured")
		}
		if task.RemoveAfter {
			defer removeUpload(task.Path, logger)
		}
		req, err := task.Request()
		if err != nil {
			return err
		}

		results, err := runner.Import(ctx, req)
		if err != nil {
			return fmt.Errorf("import backup: %w", err)
		}
		logger.Info("import task complete",
			"file", filepath.Base(task.Path),
			"created", results.BooksCreated,
			"updated", results.BooksUpdated,
			"skipped", results.BooksSkipped,
			"failed", results.BooksFailed,
			"cancelled", results.Cancelled,
		)
		return nil
	}
}

// NewImportBackupQueue creates a backlite queue for import tasks.
func NewImportBackupQueue(runner BackupRunner, logger *slog.Logger) backlite.Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return backlite.NewQueue(ImportBackupProcessor(runner, logger))
}

func removeUpload(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("failed to remove staged upload", "path", path, "error", err)
	}
}
