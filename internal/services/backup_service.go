package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
	"github.com/mrlokans/bookvault/internal/exporters"
	"github.com/mrlokans/bookvault/internal/importers"
)

// ErrBusy is returned when an export or import is requested while another
// one is running. The catalog has a single writer.
var ErrBusy = errors.New("a backup operation is already running")

// BackupConfig holds the service-wide settings applied to every run.
type BackupConfig struct {
	AppVersion     string
	BooksEncoding  backup.RecordEncoding
	CalibreEnabled bool
}

// ExportRequest describes one export.
type ExportRequest struct {
	Kind        backup.ContainerKind
	Destination backup.Destination
	Options     backup.Options
	// BooksEncoding overrides the configured books encoding when set.
	BooksEncoding backup.RecordEncoding
}

// ImportRequest describes one import. Kind may be ContainerUnknown to
// sniff the source.
type ImportRequest struct {
	Kind    backup.ContainerKind
	Source  backup.Source
	Options backup.Options
}

// BackupService runs exports and imports one at a time and records their
// progress.
type BackupService struct {
	stores   backup.Stores
	progress map[entities.SyncType]ProgressStore
	lastFile LastFileRecorder
	config   BackupConfig
	logger   *slog.Logger

	mu sync.Mutex // held for the duration of a run

	cancelMu sync.Mutex
	cancel   context.CancelFunc
}

// NewBackupService creates a BackupService. exports and imports may be
// nil to skip progress persistence.
func NewBackupService(stores backup.Stores, exports, imports ProgressStore, cfg BackupConfig, logger *slog.Logger) *BackupService {
	if logger == nil {
		logger = slog.Default()
	}
	progress := make(map[entities.SyncType]ProgressStore)
	if exports != nil {
		progress[entities.SyncTypeExport] = exports
	}
	if imports != nil {
		progress[entities.SyncTypeImport] = imports
	}
	return &BackupService{
		stores:   stores,
		progress: progress,
		config:   cfg,
		logger:   logger,
	}
}

// WithLastFileRecorder sets where successful export paths are recorded.
func (s *BackupService) WithLastFileRecorder(r LastFileRecorder) *BackupService {
	s.lastFile = r
	return s
}

// Busy reports whether a run is in progress.
func (s *BackupService) Busy() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// Cancel asks the running operation to stop at its next check. It
// returns false when nothing is running.
func (s *BackupService) Cancel() bool {
	s.cancelMu.Lock()
	defer s.cancelMu.Unlock()
	if s.cancel == nil {
		return false
	}
	s.cancel()
	return true
}

// Progress returns the persisted progress of the latest job of a type.
func (s *BackupService) Progress(typ entities.SyncType) (*entities.SyncProgress, error) {
	store, ok := s.progress[typ]
	if !ok {
		return nil, nil
	}
	return store.GetSyncProgress()
}

// begin takes the single-writer lock and returns a cancellable context.
func (s *BackupService) begin(ctx context.Context) (context.Context, func(), error) {
	if !s.mu.TryLock() {
		return nil, nil, ErrBusy
	}
	runCtx, cancel := context.WithCancel(ctx)

	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()

	end := func() {
		s.cancelMu.Lock()
		s.cancel = nil
		s.cancelMu.Unlock()
		cancel()
		s.mu.Unlock()
	}
	return runCtx, end, nil
}

func (s *BackupService) tracker(ctx context.Context, typ entities.SyncType) (*backup.Tracker, ProgressStore) {
	store := s.progress[typ]
	if store == nil {
		return backup.NewTracker(ctx, nil, s.logger), nil
	}
	if err := store.StartSync(0); err != nil {
		s.logger.Warn("failed to reset progress", "type", typ, "error", err)
	}
	return backup.NewTracker(ctx, store, s.logger), store
}

func (s *BackupService) complete(store ProgressStore, cancelled bool, err error) {
	if store == nil {
		return
	}
	var status entities.SyncStatus
	switch backup.OutcomeOf(cancelled, err) {
	case backup.OutcomeFailed:
		status = entities.SyncStatusFailed
	case backup.OutcomeCancelled:
		status = entities.SyncStatusCancelled
	default:
		status = entities.SyncStatusCompleted
	}
	if cerr := store.CompleteSync(status, backup.UserMessage(err)); cerr != nil {
		s.logger.Warn("failed to record job outcome", "error", cerr)
	}
}

// Export writes an archive. It returns ErrBusy when another run holds the
// catalog.
func (s *BackupService) Export(ctx context.Context, req ExportRequest) (backup.ExportResults, error) {
	runCtx, end, err := s.begin(ctx)
	if err != nil {
		return backup.ExportResults{}, err
	}
	defer end()

	tracker, store := s.tracker(runCtx, entities.SyncTypeExport)

	enc := req.BooksEncoding
	if enc == backup.EncodingUnknown {
		enc = s.config.BooksEncoding
	}
	exp, err := exporters.CreateWriter(req.Kind, req.Destination, exporters.Config{
		Options:       req.Options,
		Stores:        s.stores,
		Logger:        s.logger,
		BooksEncoding: enc,
		AppVersion:    s.config.AppVersion,
	})
	if err != nil {
		s.complete(store, false, err)
		return backup.ExportResults{}, err
	}

	results, err := exp.Write(runCtx, tracker)
	s.complete(store, results.Cancelled, err)

	if err == nil && !results.Cancelled && s.lastFile != nil {
		if fd, ok := req.Destination.(backup.FileDestination); ok {
			if rerr := s.lastFile.SetLastBackupFile(fd.Path()); rerr != nil {
				s.logger.Warn("failed to record backup file", "error", rerr)
			}
		}
	}
	return results, err
}

// Import restores an archive. It returns ErrBusy when another run holds
// the catalog.
func (s *BackupService) Import(ctx context.Context, req ImportRequest) (backup.ImportResults, error) {
	runCtx, end, err := s.begin(ctx)
	if err != nil {
		return backup.ImportResults{}, err
	}
	defer end()

	tracker, store := s.tracker(runCtx, entities.SyncTypeImport)

	imp, err := importers.CreateReader(req.Kind, req.Source, importers.Config{
		Options:        req.Options,
		Stores:         s.stores,
		Logger:         s.logger,
		CalibreEnabled: s.config.CalibreEnabled,
		AppVersion:     s.config.AppVersion,
	})
	if err != nil {
		s.complete(store, false, err)
		return backup.ImportResults{}, err
	}

	results, err := imp.Read(runCtx, tracker)
	s.complete(store, results.Cancelled, err)
	return results, err
}
