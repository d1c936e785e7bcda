package books

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookvault/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_books_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Book{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func newBook(uuid, title string, updated time.Time) *entities.Book {
	return &entities.Book{
		UUID:        uuid,
		Title:       title,
		Authors:     "Herbert, Frank",
		DateAdded:   updated,
		LastUpdated: updated,
	}
}

func TestRepository_FindBookByUUID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.InsertBook(newBook("u-1", "Dune", time.Now().UTC())))

	t.Run("found", func(t *testing.T) {
		book, err := repo.FindBookByUUID("u-1")
		require.NoError(t, err)
		require.NotNil(t, book)
		assert.Equal(t, "Dune", book.Title)
	})

	t.Run("missing returns nil without error", func(t *testing.T) {
		book, err := repo.FindBookByUUID("u-404")
		require.NoError(t, err)
		assert.Nil(t, book)
	})
}

func TestRepository_FindBookByID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := newBook("u-1", "Dune", time.Now().UTC())
	book.ID = 17
	require.NoError(t, repo.InsertBook(book))

	found, err := repo.FindBookByID(17)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "u-1", found.UUID)

	missing, err := repo.FindBookByID(18)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepository_InsertBook_DuplicateUUID(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.InsertBook(newBook("u-1", "Dune", time.Now().UTC())))
	err := repo.InsertBook(newBook("u-1", "Dune Messiah", time.Now().UTC()))
	assert.Error(t, err)
}

func TestRepository_UpdateBook(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	book := newBook("u-1", "Dune", time.Now().UTC())
	book.Signed = true
	require.NoError(t, repo.InsertBook(book))

	book.Title = "Dune (Deluxe)"
	book.Signed = false
	require.NoError(t, repo.UpdateBook(book))

	found, err := repo.FindBookByUUID("u-1")
	require.NoError(t, err)
	assert.Equal(t, "Dune (Deluxe)", found.Title)
	assert.False(t, found.Signed)

	t.Run("without id", func(t *testing.T) {
		err := repo.UpdateBook(newBook("u-2", "Emma", time.Now()))
		assert.Error(t, err)
	})
}

func TestRepository_BooksSince(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.InsertBook(newBook("u-1", "Old", base.Add(-time.Hour))))
	require.NoError(t, repo.InsertBook(newBook("u-2", "Equal", base)))
	require.NoError(t, repo.InsertBook(newBook("u-3", "New", base.Add(time.Hour))))

	t.Run("count all", func(t *testing.T) {
		n, err := repo.CountBooksSince(nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("count strictly after cutoff", func(t *testing.T) {
		n, err := repo.CountBooksSince(&base)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("iterate in id order", func(t *testing.T) {
		var titles []string
		err := repo.IterateBooksSince(nil, func(b *entities.Book) error {
			titles = append(titles, b.Title)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Old", "Equal", "New"}, titles)
	})

	t.Run("callback error stops iteration", func(t *testing.T) {
		stop := errors.New("stop")
		calls := 0
		err := repo.IterateBooksSince(nil, func(*entities.Book) error {
			calls++
			return stop
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})
}
