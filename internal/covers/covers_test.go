package covers

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "covers"))
	require.NoError(t, err)
	return store
}

func coverEntry(name string, data string, modTime time.Time) *backup.Entry {
	return backup.NewEntry(name, modTime, int64(len(data)), func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(data)), nil
	})
}

func TestStore(t *testing.T) {
	store := setupTestStore(t)
	modTime := time.Date(2024, 3, 1, 8, 30, 0, 0, time.UTC)

	t.Run("missing file", func(t *testing.T) {
		info, err := store.Stat("none.jpg")
		require.NoError(t, err)
		assert.Nil(t, info)
	})

	t.Run("write keeps modification time", func(t *testing.T) {
		require.NoError(t, store.Write("u-1.jpg", bytes.NewReader([]byte("jpeg")), modTime))

		info, err := store.Stat("u-1.jpg")
		require.NoError(t, err)
		require.NotNil(t, info)
		assert.Equal(t, int64(4), info.Size)
		assert.True(t, modTime.Equal(info.ModTime), "got %s", info.ModTime)

		rc, err := store.Open("u-1.jpg")
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "jpeg", string(data))
	})

	t.Run("names cannot escape the directory", func(t *testing.T) {
		assert.Equal(t, filepath.Join(store.Dir(), "x.jpg"), store.Path("../../x.jpg"))
	})

	t.Run("no temp files left behind", func(t *testing.T) {
		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), "cover_tmp_"), e.Name())
		}
	})
}

func TestSlot(t *testing.T) {
	assert.Equal(t, 0, Slot("u-1.jpg"))
	assert.Equal(t, 1, Slot("u-1_1.jpg"))
	assert.Equal(t, 1, Slot("covers/u-1_1.jpg"))
	assert.Equal(t, 0, Slot("u_10.jpg"))
}

func TestMerge(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(24 * time.Hour)

	t.Run("creates a missing cover", func(t *testing.T) {
		store := setupTestStore(t)
		res := Merge(store, coverEntry("u-1.jpg", "new", older), true)
		assert.Equal(t, 1, res.CoversCreated)
		assert.Equal(t, 1, res.CoversProcessed)
		assert.Empty(t, res.Failures)
	})

	t.Run("only newer skips an equal cover", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Write("u-1.jpg", strings.NewReader("old"), older))

		res := Merge(store, coverEntry("u-1.jpg", "new", older), true)
		assert.Equal(t, 1, res.CoversSkipped)
		assert.Zero(t, res.CoversProcessed)
	})

	t.Run("only newer replaces an older cover", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Write("u-1.jpg", strings.NewReader("old"), older))

		res := Merge(store, coverEntry("u-1.jpg", "new", newer), true)
		assert.Equal(t, 1, res.CoversUpdated)

		data, err := os.ReadFile(store.Path("u-1.jpg"))
		require.NoError(t, err)
		assert.Equal(t, "new", string(data))
	})

	t.Run("overwrite ignores timestamps", func(t *testing.T) {
		store := setupTestStore(t)
		require.NoError(t, store.Write("u-1.jpg", strings.NewReader("old"), newer))

		res := Merge(store, coverEntry("u-1.jpg", "new", older), false)
		assert.Equal(t, 1, res.CoversUpdated)
	})

	t.Run("unreadable entry is a failure", func(t *testing.T) {
		store := setupTestStore(t)
		entry := backup.NewEntry("u-1_1.jpg", older, 0, func() (io.ReadCloser, error) {
			return nil, errors.New("truncated")
		})

		res := Merge(store, entry, true)
		assert.Equal(t, [2]int{0, 1}, res.CoversMissing)
		require.Len(t, res.Failures, 1)
		assert.Contains(t, res.Failures[0].Message, "truncated")

		info, err := store.Stat("u-1_1.jpg")
		require.NoError(t, err)
		assert.Nil(t, info)
	})
}
