package settingsstore

import (
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/bookvault/internal/entities"
)

// BackupDefaults are the configured fallbacks used when the database holds
// no override.
type BackupDefaults struct {
	Enabled  bool
	Schedule string
	Dir      string
	KeepLast int
}

// BackupScheduleConfig is the effective configuration of scheduled backups.
type BackupScheduleConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
	Dir      string `json:"dir"`
	KeepLast int    `json:"keep_last"`
}

// BackupStatus is the outcome of the last scheduled backup.
type BackupStatus struct {
	LastRunAt *time.Time `json:"last_run_at,omitempty"`
	Status    string     `json:"status,omitempty"`  // "completed", "cancelled", "failed", ""
	Message   string     `json:"message,omitempty"` // Error message or summary
	File      string     `json:"file,omitempty"`
}

// defaultSchedule runs a nightly backup at 03:00.
const defaultSchedule = "0 3 * * *"

func (s *SettingsStore) GetBackupEnabled() bool {
	if v, ok := s.value(entities.SettingKeyBackupEnabled); ok {
		return v == "true" || v == "1"
	}
	return s.defaults.Enabled
}

func (s *SettingsStore) SetBackupEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeyBackupEnabled, strconv.FormatBool(enabled))
}

func (s *SettingsStore) GetBackupSchedule() string {
	if v, ok := s.value(entities.SettingKeyBackupSchedule); ok {
		return v
	}
	if s.defaults.Schedule != "" {
		return s.defaults.Schedule
	}
	return defaultSchedule
}

func (s *SettingsStore) SetBackupSchedule(schedule string) error {
	return s.db.SetSetting(entities.SettingKeyBackupSchedule, schedule)
}

func (s *SettingsStore) GetBackupDir() string {
	if v, ok := s.value(entities.SettingKeyBackupDir); ok {
		return v
	}
	if s.defaults.Dir != "" {
		return s.defaults.Dir
	}
	return "./backups"
}

func (s *SettingsStore) SetBackupDir(dir string) error {
	return s.db.SetSetting(entities.SettingKeyBackupDir, dir)
}

// GetBackupKeepLast returns how many scheduled archives to retain. Zero
// keeps all of them.
func (s *SettingsStore) GetBackupKeepLast() int {
	if v, ok := s.value(entities.SettingKeyBackupKeep); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return s.defaults.KeepLast
}

func (s *SettingsStore) SetBackupKeepLast(n int) error {
	return s.db.SetSetting(entities.SettingKeyBackupKeep, strconv.Itoa(n))
}

// GetBackupScheduleConfig returns the effective configuration
func (s *SettingsStore) GetBackupScheduleConfig() BackupScheduleConfig {
	return BackupScheduleConfig{
		Enabled:  s.GetBackupEnabled(),
		Schedule: s.GetBackupSchedule(),
		Dir:      s.GetBackupDir(),
		KeepLast: s.GetBackupKeepLast(),
	}
}

// GetBackupStatus returns the outcome of the last scheduled backup
func (s *SettingsStore) GetBackupStatus() BackupStatus {
	status := BackupStatus{File: s.LastBackupFile()}

	if v, ok := s.value(entities.SettingKeyBackupLastRunAt); ok {
		if ts, err := time.Parse(time.RFC3339, v); err == nil {
			status.LastRunAt = &ts
		}
	}
	status.Status, _ = s.value(entities.SettingKeyBackupLastStatus)
	status.Message, _ = s.value(entities.SettingKeyBackupLastMessage)
	return status
}

// SetBackupStatus records the outcome of a scheduled backup
func (s *SettingsStore) SetBackupStatus(status, message string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.db.SetSetting(entities.SettingKeyBackupLastRunAt, now); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeyBackupLastStatus, status); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyBackupLastMessage, message)
}

// ClearBackupSchedule clears all database overrides, reverting to
// configuration defaults.
func (s *SettingsStore) ClearBackupSchedule() error {
	keys := []string{
		entities.SettingKeyBackupEnabled,
		entities.SettingKeyBackupSchedule,
		entities.SettingKeyBackupDir,
		entities.SettingKeyBackupKeep,
	}
	for _, key := range keys {
		if err := s.db.DeleteSetting(key); err != nil {
			return err
		}
	}
	return nil
}

// CronParser parses the five-field schedules stored in settings.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateCronSchedule validates a cron schedule string
func ValidateCronSchedule(schedule string) error {
	_, err := CronParser.Parse(schedule)
	return err
}

// GetCronDescription returns a human-readable description of a cron schedule
func GetCronDescription(schedule string) string {
	switch schedule {
	case "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 0 * * *":
		return "Daily at midnight"
	case defaultSchedule:
		return "Daily at 03:00"
	case "0 0 * * 0":
		return "Weekly on Sunday at midnight"
	default:
		return "Custom schedule: " + schedule
	}
}

// GetNextRunTime calculates when the next backup will run after now.
func GetNextRunTime(schedule string, now time.Time) (*time.Time, error) {
	sched, err := CronParser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(now)
	return &next, nil
}
