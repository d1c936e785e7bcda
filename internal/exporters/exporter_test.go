package exporters

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/backup/backuptest"
	"github.com/mrlokans/bookvault/internal/entities"
	"github.com/mrlokans/bookvault/internal/logging"
)

var fixedNow = time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

func setupTestStores(t *testing.T) (*backuptest.Stores, func()) {
	t.Helper()
	stores := backuptest.NewStores()
	old := fixedNow.Add(-48 * time.Hour)
	for _, b := range []*entities.Book{
		backuptest.Book("u-1", "First", old),
		backuptest.Book("u-2", "Second", fixedNow.Add(-time.Hour)),
	} {
		require.NoError(t, stores.Books.InsertBook(b))
	}
	stores.Covers.Put("u-1.jpg", []byte("front"), old)
	stores.Covers.Put("u-2_1.jpg", []byte("back"), fixedNow.Add(-time.Hour))
	require.NoError(t, stores.Styles.SaveStyle(&entities.Style{UUID: "s-1", Name: "Compact", UpdatedAt: old}))
	require.NoError(t, stores.Preferences.SetPreference("ui.theme", "dark", entities.SettingTypeString))
	return stores, func() {}
}

func newExporter(t *testing.T, kind backup.ContainerKind, path string, stores *backuptest.Stores, opts backup.Options, enc backup.RecordEncoding) *Exporter {
	t.Helper()
	exp, err := CreateWriter(kind, backup.FileDestination(path), Config{
		Options:       opts,
		Stores:        stores.Backup(),
		Logger:        logging.Discard(),
		BooksEncoding: enc,
		AppVersion:    "test",
	})
	require.NoError(t, err)
	exp.now = func() time.Time { return fixedNow }
	return exp
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestExporter_Zip(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	path := filepath.Join(t.TempDir(), "backup.zip")

	exp := newExporter(t, backup.ContainerCompressedMulti, path, stores, backup.DefaultOptions(), backup.EncodingUnknown)
	tracker := backup.NewTracker(context.Background(), nil, logging.Discard())
	res, err := exp.Write(context.Background(), tracker)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Books)
	assert.Equal(t, 2, res.Covers)
	assert.Equal(t, [2]int{1, 1}, res.CoversMissing)
	assert.Equal(t, 1, res.Styles)
	assert.Equal(t, 1, res.Preferences)
	assert.Len(t, res.Checksum, 64)

	assert.Equal(t, []string{"INFO.xml", "styles.xml", "preferences.xml", "books.xml", "u-1.jpg", "u-2_1.jpg"}, zipNames(t, path))

	last, _ := stores.Dates.LastFullBackup()
	require.NotNil(t, last)
	assert.True(t, fixedNow.Equal(*last))

	pos, max, _ := tracker.Snapshot()
	assert.LessOrEqual(t, pos, max)
}

func TestExporter_BooksEncoding(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	path := filepath.Join(t.TempDir(), "backup.zip")

	_, err := newExporter(t, backup.ContainerCompressedMulti, path, stores, backup.DefaultOptions(), backup.EncodingKeyValue).
		Write(context.Background(), backup.NopProgress{})
	require.NoError(t, err)

	names := zipNames(t, path)
	assert.Contains(t, names, "books.json")
	assert.Contains(t, names, "styles.json")
	assert.Contains(t, names, "preferences.json")
}

func TestExporter_Sync(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	require.NoError(t, stores.Dates.SetLastFullBackup(fixedNow.Add(-24*time.Hour)))
	path := filepath.Join(t.TempDir(), "sync.zip")

	opts := backup.DefaultOptions()
	opts.Sync = true
	res, err := newExporter(t, backup.ContainerCompressedMulti, path, stores, opts, backup.EncodingUnknown).
		Write(context.Background(), backup.NopProgress{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Books)
	assert.Equal(t, 1, res.Covers)
	assert.NotContains(t, zipNames(t, path), "u-1.jpg")

	last, _ := stores.Dates.LastFullBackup()
	assert.True(t, fixedNow.Add(-24*time.Hour).Equal(*last), "sync exports keep the last full backup date")
}

func TestExporter_Tabular(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	path := filepath.Join(t.TempDir(), "books.csv")

	res, err := newExporter(t, backup.ContainerTabular, path, stores, backup.DefaultOptions(), backup.EncodingKeyValue).
		Write(context.Background(), backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Books)
	assert.Zero(t, res.Covers)
	assert.Zero(t, res.Styles)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "_id,book_uuid,"))
}

func TestExporter_StructuredMarkup(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	path := filepath.Join(t.TempDir(), "backup.xml")

	res, err := newExporter(t, backup.ContainerStructuredMarkup, path, stores, backup.DefaultOptions(), backup.EncodingUnknown).
		Write(context.Background(), backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Books)
	assert.Zero(t, res.Covers)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := string(data)
	for _, tag := range []string{"<info ", "<styles ", "<preferences ", "<books "} {
		assert.Contains(t, doc, tag)
	}
	assert.Contains(t, doc, `name="Compact"`)
}

func TestExporter_Cancelled(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	dir := t.TempDir()
	path := filepath.Join(dir, "cancelled.zip")

	res, err := newExporter(t, backup.ContainerCompressedMulti, path, stores, backup.DefaultOptions(), backup.EncodingUnknown).
		Write(context.Background(), &backuptest.CancelAfter{N: 1})
	require.NoError(t, err)
	assert.True(t, res.Cancelled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	last, _ := stores.Dates.LastFullBackup()
	assert.Nil(t, last)
}

func TestExporter_ContextCancelled(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	path := filepath.Join(t.TempDir(), "ctx.zip")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newExporter(t, backup.ContainerCompressedMulti, path, stores, backup.DefaultOptions(), backup.EncodingUnknown).
		Write(ctx, nil)
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.NoFileExists(t, path)
}

func TestExporter_NothingSelected(t *testing.T) {
	stores, cleanup := setupTestStores(t)
	defer cleanup()
	path := filepath.Join(t.TempDir(), "none.zip")

	_, err := newExporter(t, backup.ContainerCompressedMulti, path, stores, backup.Options{Metadata: true}, backup.EncodingUnknown).
		Write(context.Background(), backup.NopProgress{})
	var opErr *backup.OperationError
	require.ErrorAs(t, err, &opErr)
	assert.ErrorIs(t, err, backup.ErrInvalidOptions)
	assert.NoFileExists(t, path)
}

func TestExporter_EmptyCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")
	res, err := newExporter(t, backup.ContainerCompressedMulti, path, backuptest.NewStores(), backup.DefaultOptions(), backup.EncodingUnknown).
		Write(context.Background(), backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, backup.ExportResults{}, res)
	assert.NoFileExists(t, path)
}

func TestCreateWriter(t *testing.T) {
	_, err := CreateWriter(backup.ContainerBinaryDatabase, backup.FileDestination("/tmp/x.db"), Config{})
	assert.ErrorIs(t, err, backup.ErrInvalidArchive)
	assert.Equal(t, backup.MessageInvalidFormat, backup.UserMessage(err))
}

func TestBooksEncodingFor(t *testing.T) {
	cases := []struct {
		kind      backup.ContainerKind
		requested backup.RecordEncoding
		want      backup.RecordEncoding
	}{
		{backup.ContainerCompressedMulti, backup.EncodingUnknown, backup.EncodingStructuredMarkup},
		{backup.ContainerCompressedMulti, backup.EncodingKeyValue, backup.EncodingKeyValue},
		{backup.ContainerUncompressedMulti, backup.EncodingUnknown, backup.EncodingTabular},
		{backup.ContainerTabular, backup.EncodingKeyValue, backup.EncodingTabular},
		{backup.ContainerStructuredMarkup, backup.EncodingTabular, backup.EncodingStructuredMarkup},
		{backup.ContainerCompressedMulti, backup.EncodingRawImage, backup.EncodingStructuredMarkup},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, booksEncodingFor(tc.kind, tc.requested), "%s/%s", tc.kind, tc.requested)
	}
}

func TestChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0644))
	sum, err := checksum(path)
	require.NoError(t, err)
	assert.Equal(t, "6437b3ac38465133ffb63b75273a8db548c558465d79db03fd359c6cd5bd9d85", sum)

	_, err = checksum(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
