package tararchive

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
)

func writeTar(t *testing.T, path string, names ...string) {
	t.Helper()
	w, err := NewWriter(backup.FileDestination(path))
	require.NoError(t, err)
	for _, name := range names {
		require.NoError(t, w.PutFile(name, strings.NewReader("body of "+name), true))
	}
	require.NoError(t, w.Close())
}

func TestTar_Enumerate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.tar")
	writeTar(t, path, "books.json", "styles.json", "u-1.jpg")
	assert.Equal(t, backup.ContainerUncompressedMulti, backup.Sniff(backup.FileSource(path)))

	r, err := NewReader(backup.FileSource(path))
	require.NoError(t, err)
	defer r.Close()

	info, err := r.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, legacyVersion, info.Version)

	var kinds []backup.RecordKind
	for {
		e, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []backup.RecordKind{backup.RecordBooks, backup.RecordStyles, backup.RecordCover}, kinds)

	require.NoError(t, r.Reset())
	first, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "books.json", first.Name)

	rc, err := first.Open()
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "body of books.json", string(data))
}

func TestTar_StaleEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.tar")
	writeTar(t, path, "books.json", "styles.json")

	r, err := NewReader(backup.FileSource(path))
	require.NoError(t, err)
	defer r.Close()

	first, err := r.Next()
	require.NoError(t, err)
	_, err = r.Next()
	require.NoError(t, err)

	_, err = first.Open()
	assert.ErrorIs(t, err, backup.ErrStaleEntry)

	styles, err := r.Find(backup.RecordStyles)
	require.NoError(t, err)
	require.NoError(t, r.Reset())
	_, err = styles.Open()
	assert.ErrorIs(t, err, backup.ErrStaleEntry)
}

func TestTar_FindNotFound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.tar")
	writeTar(t, path, "books.json")

	r, err := NewReader(backup.FileSource(path))
	require.NoError(t, err)
	defer r.Close()

	_, err = r.Find(backup.RecordPreferences)
	assert.ErrorIs(t, err, backup.ErrEntryNotFound)
}

func TestMeasure(t *testing.T) {
	size, body, err := measure(backup.TimedReader{Reader: strings.NewReader("abcd")})
	require.NoError(t, err)
	assert.Equal(t, int64(4), size)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "abcd", string(data))

	size, body, err = measure(io.MultiReader(strings.NewReader("ab"), strings.NewReader("c")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), size)
	data, _ = io.ReadAll(body)
	assert.Equal(t, "abc", string(data))
}
