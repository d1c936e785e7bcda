package settingsstore

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/database"
	"github.com/mrlokans/bookvault/internal/database/settings"
	"github.com/mrlokans/bookvault/internal/entities"
)

func setupTestDB(t *testing.T) (*settings.Repository, func()) {
	t.Helper()
	dbPath := "./test_settings_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath)
	require.NoError(t, err)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}
	return settings.NewRepository(db.DB), cleanup
}

func TestLastFullBackup(t *testing.T) {
	t.Run("nil when never recorded", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		last, err := New(repo, BackupDefaults{}).LastFullBackup()
		require.NoError(t, err)
		assert.Nil(t, last)
	})

	t.Run("round trips in utc", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		store := New(repo, BackupDefaults{})
		local := time.Date(2024, 6, 1, 10, 30, 0, 0, time.FixedZone("CEST", 2*3600))
		require.NoError(t, store.SetLastFullBackup(local))

		last, err := store.LastFullBackup()
		require.NoError(t, err)
		require.NotNil(t, last)
		assert.True(t, local.Equal(*last))
		assert.Equal(t, time.UTC, last.Location())

		raw, err := repo.GetSetting(entities.SettingKeyLastFullBackup)
		require.NoError(t, err)
		assert.Equal(t, "2024-06-01T08:30:00Z", raw.Value)
	})

	t.Run("invalid stored value is an error", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		require.NoError(t, repo.SetSetting(entities.SettingKeyLastFullBackup, "yesterday"))
		_, err := New(repo, BackupDefaults{}).LastFullBackup()
		assert.Error(t, err)
	})
}

func TestBackupScheduleConfig(t *testing.T) {
	t.Run("falls back to defaults", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		store := New(repo, BackupDefaults{Enabled: true, Dir: "/var/backups", KeepLast: 5})
		cfg := store.GetBackupScheduleConfig()
		assert.True(t, cfg.Enabled)
		assert.Equal(t, defaultSchedule, cfg.Schedule)
		assert.Equal(t, "/var/backups", cfg.Dir)
		assert.Equal(t, 5, cfg.KeepLast)
	})

	t.Run("database overrides defaults", func(t *testing.T) {
		repo, cleanup := setupTestDB(t)
		defer cleanup()

		store := New(repo, BackupDefaults{Enabled: true, Schedule: "@daily", KeepLast: 5})
		require.NoError(t, store.SetBackupEnabled(false))
		require.NoError(t, store.SetBackupSchedule("0 */6 * * *"))
		require.NoError(t, store.SetBackupKeepLast(2))

		cfg := store.GetBackupScheduleConfig()
		assert.False(t, cfg.Enabled)
		assert.Equal(t, "0 */6 * * *", cfg.Schedule)
		assert.Equal(t, 2, cfg.KeepLast)

		require.NoError(t, store.ClearBackupSchedule())
		assert.Equal(t, "@daily", store.GetBackupSchedule())
		assert.True(t, store.GetBackupEnabled())
	})
}

func TestBackupStatus(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	store := New(repo, BackupDefaults{})
	assert.Empty(t, store.GetBackupStatus().Status)

	require.NoError(t, store.SetLastBackupFile("/backups/bookvault-1.zip"))
	require.NoError(t, store.SetBackupStatus("completed", "12 books"))

	status := store.GetBackupStatus()
	assert.Equal(t, "completed", status.Status)
	assert.Equal(t, "12 books", status.Message)
	assert.Equal(t, "/backups/bookvault-1.zip", status.File)
	assert.NotNil(t, status.LastRunAt)
}

func TestCronHelpers(t *testing.T) {
	assert.NoError(t, ValidateCronSchedule(defaultSchedule))
	assert.Error(t, ValidateCronSchedule("every night"))

	assert.Equal(t, "Daily at 03:00", GetCronDescription(defaultSchedule))
	assert.Equal(t, "Custom schedule: 5 4 * * *", GetCronDescription("5 4 * * *"))

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	next, err := GetNextRunTime(defaultSchedule, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC), *next)

	_, err = GetNextRunTime("bad", now)
	assert.Error(t, err)
}
