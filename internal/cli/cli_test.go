package cli

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/database"
	"github.com/mrlokans/bookvault/internal/entities"
)

func TestExportCommand_ParseFlags(t *testing.T) {
	t.Run("requires out", func(t *testing.T) {
		assert.Error(t, NewExportCommand("test").ParseFlags(nil))
	})

	t.Run("resolves kind from extension", func(t *testing.T) {
		for path, want := range map[string]backup.ContainerKind{
			"/tmp/a.zip":    backup.ContainerCompressedMulti,
			"/tmp/a.TAR":    backup.ContainerUncompressedMulti,
			"/tmp/a.csv":    backup.ContainerTabular,
			"/tmp/a.xml":    backup.ContainerStructuredMarkup,
			"/tmp/a.backup": backup.ContainerCompressedMulti,
		} {
			cmd := NewExportCommand("test")
			require.NoError(t, cmd.ParseFlags([]string{"--out", path}))
			kind, err := cmd.kind()
			require.NoError(t, err)
			assert.Equal(t, want, kind, path)
		}
	})

	t.Run("rejects unwritable kind", func(t *testing.T) {
		cmd := NewExportCommand("test")
		require.NoError(t, cmd.ParseFlags([]string{"--out", "/tmp/a.db", "--kind", "db"}))
		_, err := cmd.kind()
		assert.Error(t, err)
	})

	t.Run("selection flags", func(t *testing.T) {
		cmd := NewExportCommand("test")
		require.NoError(t, cmd.ParseFlags([]string{"--out", "/tmp/a.zip", "--no-covers", "--sync"}))
		opts := cmd.selection.options()
		assert.True(t, opts.Books)
		assert.False(t, opts.Covers)
		assert.True(t, opts.Sync)
	})
}

func TestImportCommand_Request(t *testing.T) {
	t.Run("defaults to sniffing with skip", func(t *testing.T) {
		cmd := NewImportCommand("test")
		require.NoError(t, cmd.ParseFlags([]string{"--in", "/tmp/a.zip"}))

		req, err := cmd.request()
		require.NoError(t, err)
		assert.Equal(t, backup.ContainerUnknown, req.Kind)
		assert.Equal(t, backup.MergeSkip, req.Options.Policy)
	})

	t.Run("parses kind and policy", func(t *testing.T) {
		cmd := NewImportCommand("test")
		require.NoError(t, cmd.ParseFlags([]string{"--in", "/tmp/a.db", "--kind", "db", "--policy", "newer"}))

		req, err := cmd.request()
		require.NoError(t, err)
		assert.Equal(t, backup.ContainerBinaryDatabase, req.Kind)
		assert.Equal(t, backup.MergeOnlyNewer, req.Options.Policy)
	})

	t.Run("rejects bad values", func(t *testing.T) {
		cmd := NewImportCommand("test")
		require.NoError(t, cmd.ParseFlags([]string{"--in", "/tmp/a", "--kind", "xml"}))
		_, err := cmd.request()
		assert.Error(t, err)

		cmd = NewImportCommand("test")
		require.NoError(t, cmd.ParseFlags([]string{"--in", "/tmp/a", "--policy", "merge"}))
		_, err = cmd.request()
		assert.Error(t, err)
	})
}

func TestExportImportCommands(t *testing.T) {
	dir := t.TempDir()
	srcDB := filepath.Join(dir, "src.db")
	dstDB := filepath.Join(dir, "dst.db")
	archive := filepath.Join(dir, "out.tar")

	db, err := database.OpenCatalog(srcDB)
	require.NoError(t, err)
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, db.Books.InsertBook(&entities.Book{
		UUID:        "0b8f4f2e-1f0c-4c1a-8d5e-0a6a4f9b3c11",
		Title:       "Piranesi",
		Authors:     "Clarke, Susanna",
		DateAdded:   now,
		LastUpdated: now,
	}))
	require.NoError(t, db.Close())

	var out bytes.Buffer
	export := NewExportCommand("test")
	export.out = &out
	require.NoError(t, export.ParseFlags([]string{
		"--out", archive,
		"--database-path", srcDB,
		"--covers-dir", filepath.Join(dir, "src-covers"),
		"--log-level", "error",
	}))
	require.NoError(t, export.Run())
	assert.Contains(t, out.String(), "Books:       1")

	out.Reset()
	inspect := NewInspectCommand()
	inspect.out = &out
	require.NoError(t, inspect.ParseFlags([]string{"--in", archive}))
	require.NoError(t, inspect.Run())
	assert.Contains(t, out.String(), "Kind: tar")
	assert.Contains(t, out.String(), "Books: 1")

	out.Reset()
	imp := NewImportCommand("test")
	imp.out = &out
	require.NoError(t, imp.ParseFlags([]string{
		"--in", archive,
		"--database-path", dstDB,
		"--covers-dir", filepath.Join(dir, "dst-covers"),
		"--log-level", "error",
	}))
	require.NoError(t, imp.Run())
	assert.Contains(t, out.String(), "1 created")

	restored, err := database.OpenCatalog(dstDB)
	require.NoError(t, err)
	defer restored.Close()
	book, err := restored.Books.FindBookByUUID("0b8f4f2e-1f0c-4c1a-8d5e-0a6a4f9b3c11")
	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "Piranesi", book.Title)
}
