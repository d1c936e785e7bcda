package settingsstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookvault/internal/entities"
)

// Settings is the key-value persistence the store reads and writes.
type Settings interface {
	GetSetting(key string) (*entities.Setting, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Priority: database > configuration > default
type SettingsStore struct {
	db       Settings
	defaults BackupDefaults
}

func New(db Settings, defaults BackupDefaults) *SettingsStore {
	return &SettingsStore{db: db, defaults: defaults}
}

func (s *SettingsStore) value(key string) (string, bool) {
	setting, err := s.db.GetSetting(key)
	if err != nil || setting.Value == "" {
		return "", false
	}
	return setting.Value, true
}

// LastFullBackup returns the date of the last successful full export, or
// nil when none was recorded.
// Implements backup.BackupDateStore.LastFullBackup.
func (s *SettingsStore) LastFullBackup() (*time.Time, error) {
	setting, err := s.db.GetSetting(entities.SettingKeyLastFullBackup)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if setting.Value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, setting.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid last backup date %q: %w", setting.Value, err)
	}
	ts = ts.UTC()
	return &ts, nil
}

// SetLastFullBackup records the date of a successful full export.
// Implements backup.BackupDateStore.SetLastFullBackup.
func (s *SettingsStore) SetLastFullBackup(t time.Time) error {
	return s.db.SetSetting(entities.SettingKeyLastFullBackup, t.UTC().Format(time.RFC3339Nano))
}

// LastBackupFile returns the path of the most recent archive written.
func (s *SettingsStore) LastBackupFile() string {
	v, _ := s.value(entities.SettingKeyLastBackupFile)
	return v
}

func (s *SettingsStore) SetLastBackupFile(path string) error {
	return s.db.SetSetting(entities.SettingKeyLastBackupFile, path)
}
