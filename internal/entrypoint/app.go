package entrypoint

import (
	"fmt"
	"log/slog"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/config"
	"github.com/mrlokans/bookvault/internal/covers"
	"github.com/mrlokans/bookvault/internal/database"
	"github.com/mrlokans/bookvault/internal/services"
	"github.com/mrlokans/bookvault/internal/settingsstore"
)

// App is the wired catalog shared by the server and the CLI commands.
type App struct {
	Config   *config.Config
	Catalog  *database.Catalog
	Covers   *covers.Store
	Settings *settingsstore.SettingsStore
	Backups  *services.BackupService
	Logger   *slog.Logger
}

// Open connects the catalog database and builds the backup service.
func Open(cfg *config.Config, version string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cat, err := database.OpenCatalog(cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	coverStore, err := covers.NewStore(cfg.Covers.Dir)
	if err != nil {
		cat.Close()
		return nil, err
	}

	ss := settingsstore.New(cat.Settings, settingsstore.BackupDefaults{
		Enabled:  cfg.Backup.ScheduleOn,
		Schedule: cfg.Backup.Schedule,
		Dir:      cfg.Backup.Dir,
		KeepLast: cfg.Backup.KeepLast,
	})

	enc, err := BooksEncoding(cfg)
	if err != nil {
		cat.Close()
		return nil, err
	}

	svc := services.NewBackupService(
		services.NewStores(cat, coverStore, ss),
		cat.ExportProgress,
		cat.ImportProgress,
		services.BackupConfig{
			AppVersion:     version,
			BooksEncoding:  enc,
			CalibreEnabled: cfg.Backup.CalibreEnabled,
		},
		logger,
	).WithLastFileRecorder(ss)

	return &App{
		Config:   cfg,
		Catalog:  cat,
		Covers:   coverStore,
		Settings: ss,
		Backups:  svc,
		Logger:   logger,
	}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.Catalog.Close()
}

// BackupKind parses the configured default container kind.
func BackupKind(cfg *config.Config) (backup.ContainerKind, error) {
	kind, ok := backup.ParseContainerKind(cfg.Backup.Kind)
	if !ok || !backup.CanWrite(kind) {
		return backup.ContainerUnknown, fmt.Errorf("invalid backup kind %q", cfg.Backup.Kind)
	}
	return kind, nil
}

// BooksEncoding parses the configured books encoding. Empty selects the
// container's default.
func BooksEncoding(cfg *config.Config) (backup.RecordEncoding, error) {
	if cfg.Backup.BooksFormat == "" {
		return backup.EncodingUnknown, nil
	}
	enc, ok := backup.ParseEncoding(cfg.Backup.BooksFormat)
	if !ok {
		return backup.EncodingUnknown, fmt.Errorf("invalid books format %q", cfg.Backup.BooksFormat)
	}
	return enc, nil
}
