package services

import (
	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/database"
	"github.com/mrlokans/bookvault/internal/entities"
)

// ProgressStore persists the progress of one job type and lets callers
// poll it.
type ProgressStore interface {
	backup.ProgressReporter
	GetSyncProgress() (*entities.SyncProgress, error)
}

// LastFileRecorder remembers where the most recent archive was written.
// It is optional; settingsstore.SettingsStore implements it.
type LastFileRecorder interface {
	SetLastBackupFile(path string) error
}

// NewStores assembles the collaborators of a backup run from a catalog
// database, a cover store and the settings store. covers and dates may be
// nil.
func NewStores(cat *database.Catalog, covers backup.CoverStore, dates backup.BackupDateStore) backup.Stores {
	return backup.Stores{
		Books:       cat.Books,
		BookSource:  cat.Books,
		Styles:      cat.Styles,
		Preferences: cat.Settings,
		Covers:      covers,
		BackupDates: dates,
	}
}
