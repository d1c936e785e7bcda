package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/covers"
	"github.com/mrlokans/bookvault/internal/database"
	"github.com/mrlokans/bookvault/internal/entities"
	"github.com/mrlokans/bookvault/internal/logging"
	"github.com/mrlokans/bookvault/internal/settingsstore"
)

type testEnv struct {
	catalog  *database.Catalog
	settings *settingsstore.SettingsStore
	service  *BackupService
}

func setupTestService(t *testing.T) (*testEnv, func()) {
	t.Helper()
	dir := t.TempDir()

	cat, err := database.OpenCatalog(filepath.Join(dir, "catalog.db"))
	require.NoError(t, err)

	coverStore, err := covers.NewStore(filepath.Join(dir, "covers"))
	require.NoError(t, err)

	ss := settingsstore.New(cat.Settings, settingsstore.BackupDefaults{})
	svc := NewBackupService(
		NewStores(cat, coverStore, ss),
		cat.ExportProgress,
		cat.ImportProgress,
		BackupConfig{AppVersion: "test", BooksEncoding: backup.EncodingStructuredMarkup},
		logging.Discard(),
	).WithLastFileRecorder(ss)

	cleanup := func() {
		cat.Close()
	}
	return &testEnv{catalog: cat, settings: ss, service: svc}, cleanup
}

func addBook(t *testing.T, cat *database.Catalog, uuid, title string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, cat.Books.InsertBook(&entities.Book{
		UUID:        uuid,
		Title:       title,
		Authors:     "Le Guin, Ursula",
		DateAdded:   now,
		LastUpdated: now,
	}))
}

func TestBackupService_ExportImport(t *testing.T) {
	t.Run("round trips books through a zip archive", func(t *testing.T) {
		src, cleanupSrc := setupTestService(t)
		defer cleanupSrc()

		addBook(t, src.catalog, "5a3c0e4e-6d55-4d3b-9a7e-0d7f7d1c0a01", "The Dispossessed")
		addBook(t, src.catalog, "5a3c0e4e-6d55-4d3b-9a7e-0d7f7d1c0a02", "The Lathe of Heaven")

		archivePath := filepath.Join(t.TempDir(), "backup.zip")
		exported, err := src.service.Export(context.Background(), ExportRequest{
			Kind:        backup.ContainerCompressedMulti,
			Destination: backup.FileDestination(archivePath),
			Options:     backup.DefaultOptions(),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, exported.Books)
		assert.NotEmpty(t, exported.Checksum)
		assert.Equal(t, archivePath, src.settings.LastBackupFile())

		last, err := src.settings.LastFullBackup()
		require.NoError(t, err)
		assert.NotNil(t, last)

		progress, err := src.service.Progress(entities.SyncTypeExport)
		require.NoError(t, err)
		require.NotNil(t, progress)
		assert.Equal(t, entities.SyncStatusCompleted, progress.Status)

		dst, cleanupDst := setupTestService(t)
		defer cleanupDst()

		imported, err := dst.service.Import(context.Background(), ImportRequest{
			Source:  backup.FileSource(archivePath),
			Options: backup.DefaultOptions(),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, imported.BooksCreated)
		assert.Equal(t, 0, imported.BooksFailed)

		book, err := dst.catalog.Books.FindBookByUUID("5a3c0e4e-6d55-4d3b-9a7e-0d7f7d1c0a01")
		require.NoError(t, err)
		require.NotNil(t, book)
		assert.Equal(t, "The Dispossessed", book.Title)
	})

	t.Run("records failed import with user message", func(t *testing.T) {
		env, cleanup := setupTestService(t)
		defer cleanup()

		_, err := env.service.Import(context.Background(), ImportRequest{
			Source:  backup.BytesSource{FileName: "garbage.bin", Data: []byte("definitely not an archive")},
			Options: backup.DefaultOptions(),
		})
		require.Error(t, err)

		var opErr *backup.OperationError
		assert.ErrorAs(t, err, &opErr)

		progress, err := env.service.Progress(entities.SyncTypeImport)
		require.NoError(t, err)
		require.NotNil(t, progress)
		assert.Equal(t, entities.SyncStatusFailed, progress.Status)
		assert.Equal(t, backup.MessageInvalidFormat, progress.Error)
	})
}

func TestBackupService_Busy(t *testing.T) {
	env, cleanup := setupTestService(t)
	defer cleanup()

	assert.False(t, env.service.Busy())
	assert.False(t, env.service.Cancel())

	_, end, err := env.service.begin(context.Background())
	require.NoError(t, err)

	assert.True(t, env.service.Busy())

	_, err = env.service.Export(context.Background(), ExportRequest{
		Kind:        backup.ContainerTabular,
		Destination: backup.FileDestination(filepath.Join(t.TempDir(), "books.csv")),
		Options:     backup.DefaultOptions(),
	})
	assert.ErrorIs(t, err, ErrBusy)

	_, err = env.service.Import(context.Background(), ImportRequest{
		Source:  backup.BytesSource{FileName: "books.csv", Data: []byte("title\n")},
		Options: backup.DefaultOptions(),
	})
	assert.ErrorIs(t, err, ErrBusy)

	assert.True(t, env.service.Cancel())
	end()
	assert.False(t, env.service.Busy())
}

func TestBackupService_ProgressUnknownType(t *testing.T) {
	svc := NewBackupService(backup.Stores{}, nil, nil, BackupConfig{}, logging.Discard())

	progress, err := svc.Progress(entities.SyncTypeExport)
	require.NoError(t, err)
	assert.Nil(t, progress)
}
