package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/services"
	"github.com/mrlokans/bookvault/internal/settingsstore"
)

// archivePrefix starts the name of every scheduled archive. Retention only
// ever touches files carrying it.
const archivePrefix = "bookvault-"

const archiveTimeLayout = "20060102-150405"

// Exporter runs one export. services.BackupService implements it.
type Exporter interface {
	Export(ctx context.Context, req services.ExportRequest) (backup.ExportResults, error)
}

// ScheduleSettings is the part of the settings store the scheduler reads
// and reports to.
type ScheduleSettings interface {
	GetBackupScheduleConfig() settingsstore.BackupScheduleConfig
	SetBackupStatus(status, message string) error
}

// BackupScheduler runs periodic full exports into the backup directory
// and prunes old archives.
type BackupScheduler struct {
	exporter      Exporter
	settings      ScheduleSettings
	kind          backup.ContainerKind
	booksEncoding backup.RecordEncoding
	logger        *slog.Logger
	now           func() time.Time

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
	runCtx     context.Context
}

// NewBackupScheduler creates a new scheduler instance
func NewBackupScheduler(exporter Exporter, settings ScheduleSettings, kind backup.ContainerKind, enc backup.RecordEncoding, logger *slog.Logger) *BackupScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BackupScheduler{
		exporter:      exporter,
		settings:      settings,
		kind:          kind,
		booksEncoding: enc,
		logger:        logger.With("component", "backup_scheduler"),
		now:           time.Now,
		cron:          cron.New(cron.WithParser(settingsstore.CronParser)),
	}
}

// Start begins the scheduler if scheduled backups are enabled
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	config := s.settings.GetBackupScheduleConfig()
	if !config.Enabled {
		s.logger.Info("scheduled backups disabled")
		return nil
	}
	if config.Dir == "" {
		s.logger.Info("backup directory not configured, skipping")
		return nil
	}
	if !backup.CanWrite(s.kind) {
		return fmt.Errorf("scheduled backups cannot write %s archives", s.kind)
	}
	if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	var runCtx context.Context
	runCtx, s.cancelFunc = context.WithCancel(ctx)
	s.runCtx = runCtx

	entryID, err := s.cron.AddFunc(config.Schedule, func() {
		s.runBackup(runCtx)
	})
	if err != nil {
		s.cancelFunc()
		return fmt.Errorf("failed to schedule backup job: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(config.Schedule, s.now())
	s.logger.Info("scheduler started",
		"schedule", config.Schedule,
		"description", settingsstore.GetCronDescription(config.Schedule),
		"next_run", nextRun,
	)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops accepting new runs and waits for a running one to finish.
func (s *BackupScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	// A running export polls this context, so cancel it before waiting.
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.isRunning = false
	s.cancelFunc = nil
	s.runCtx = nil

	s.logger.Info("scheduler stopped")
}

// Reschedule updates the schedule (call after settings change)
func (s *BackupScheduler) Reschedule(ctx context.Context) error {
	s.Stop()
	return s.Start(ctx)
}

// RunNow triggers an immediate backup in the background.
func (s *BackupScheduler) RunNow() {
	s.mu.RLock()
	ctx := s.runCtx
	s.mu.RUnlock()
	if ctx == nil {
		ctx = context.Background()
	}
	go s.runBackup(ctx)
}

// IsRunning returns whether the scheduler is active
func (s *BackupScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next backup will occur
func (s *BackupScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// ArchiveName builds the file name of a scheduled archive.
func ArchiveName(kind backup.ContainerKind, at time.Time) string {
	return archivePrefix + at.UTC().Format(archiveTimeLayout) + backup.ContainerExtension(kind)
}

// runBackup performs one scheduled export and records its outcome.
func (s *BackupScheduler) runBackup(ctx context.Context) {
	config := s.settings.GetBackupScheduleConfig()
	if !config.Enabled {
		s.logger.Info("backup skipped, disabled")
		return
	}

	path := filepath.Join(config.Dir, ArchiveName(s.kind, s.now()))
	s.logger.Info("starting scheduled backup", "path", path)
	started := s.now()

	results, err := s.exporter.Export(ctx, services.ExportRequest{
		Kind:          s.kind,
		Destination:   backup.FileDestination(path),
		Options:       backup.DefaultOptions(),
		BooksEncoding: s.booksEncoding,
	})

	outcome := backup.OutcomeOf(results.Cancelled, err)
	var message string
	switch {
	case errors.Is(err, services.ErrBusy):
		message = "skipped: another backup operation is running"
	case err != nil:
		message = backup.UserMessage(err)
		s.logger.Error("scheduled backup failed", "error", err)
	case results.Cancelled:
		message = "cancelled"
	default:
		message = fmt.Sprintf("Exported %d books and %d covers in %v",
			results.Books, results.Covers, s.now().Sub(started).Round(time.Millisecond))
		s.logger.Info("scheduled backup complete", "books", results.Books, "covers", results.Covers)
	}
	if serr := s.settings.SetBackupStatus(string(outcome), message); serr != nil {
		s.logger.Warn("failed to record backup status", "error", serr)
	}

	if outcome == backup.OutcomeCompleted {
		removed, perr := Prune(config.Dir, config.KeepLast)
		if perr != nil {
			s.logger.Warn("failed to prune old backups", "error", perr)
		}
		for _, name := range removed {
			s.logger.Info("removed old backup", "file", name)
		}
	}
}

// Prune deletes scheduled archives in dir beyond the newest keep. Zero
// keeps everything. It returns the names it removed.
func Prune(dir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var archives []string
	for _, e := range entries {
		if e.IsDir() || !isScheduledArchive(e.Name()) {
			continue
		}
		archives = append(archives, e.Name())
	}
	if len(archives) <= keep {
		return nil, nil
	}

	// The timestamp layout sorts lexically.
	sort.Sort(sort.Reverse(sort.StringSlice(archives)))

	var removed []string
	var errs []error
	for _, name := range archives[keep:] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, name)
	}
	return removed, errors.Join(errs...)
}

func isScheduledArchive(name string) bool {
	if !strings.HasPrefix(name, archivePrefix) {
		return false
	}
	ext := filepath.Ext(name)
	kind, ok := backup.ParseContainerKind(strings.TrimPrefix(ext, "."))
	if !ok || !backup.CanWrite(kind) {
		return false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), ext)
	_, err := time.Parse(archiveTimeLayout, stamp)
	return err == nil
}
