package csvcodec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/backup/backuptest"
	"github.com/mrlokans/bookvault/internal/entities"
)

func TestCodec_RoundTrip(t *testing.T) {
	updated := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	src := backuptest.NewBooks(
		&entities.Book{
			UUID:         "u-1",
			Title:        "Notes\nfrom underground",
			Authors:      "Dostoevsky, Fyodor; Garnett, Constance",
			Series:       "Classics",
			SeriesNumber: "4",
			Pages:        136,
			Rating:       4.5,
			Read:         true,
			Notes:        "tab\there \\ slash",
			Bookshelves:  "Shelf A; Shelf B",
			DateAdded:    updated,
			LastUpdated:  updated,
		},
		backuptest.Book("u-2", "Second", updated),
	)

	var buf bytes.Buffer
	res, err := New().WriteBooks(&buf, src.Iterator(), nil, backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Books)
	assert.Equal(t, 3, strings.Count(buf.String(), "\n"), "one physical line per record")

	dst := backuptest.NewBooks()
	imported, err := New().ReadBooks(&buf, backup.NewMerger(dst, nil, backup.MergeSkip, nil), backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, imported.BooksCreated)
	assert.Empty(t, imported.Failures)

	got, _ := dst.FindBookByUUID("u-1")
	require.NotNil(t, got)
	assert.Equal(t, "Notes\nfrom underground", got.Title)
	assert.Equal(t, "tab\there \\ slash", got.Notes)
	assert.Equal(t, []string{"Dostoevsky, Fyodor", "Garnett, Constance"}, got.AuthorList())
	assert.Equal(t, []string{"Shelf A", "Shelf B"}, got.BookshelfList())
	assert.Equal(t, "Classics", got.Series)
	assert.Equal(t, "4", got.SeriesNumber)
	assert.Equal(t, 136, got.Pages)
	assert.Equal(t, 4.5, got.Rating)
	assert.True(t, got.Read)
	assert.True(t, updated.Equal(got.LastUpdated))
}

func TestCodec_WriteBooksSince(t *testing.T) {
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	cutoff := old.Add(24 * time.Hour)
	src := backuptest.NewBooks(
		backuptest.Book("u-old", "Old", old),
		backuptest.Book("u-new", "New", cutoff.Add(time.Hour)),
	)

	var buf bytes.Buffer
	res, err := New().WriteBooks(&buf, src.Iterator(), &cutoff, backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Books)
	assert.NotContains(t, buf.String(), "u-old")
}

func TestCodec_ReadBooks(t *testing.T) {
	read := func(t *testing.T, data string, policy backup.MergePolicy) (backup.ImportResults, *backuptest.Books, error) {
		store := backuptest.NewBooks()
		res, err := New().ReadBooks(strings.NewReader(data), backup.NewMerger(store, nil, policy, nil), backup.NopProgress{})
		return res, store, err
	}

	t.Run("bad rows are recorded", func(t *testing.T) {
		data := "book_uuid,title,author_details,pages\n" +
			"u-1,Good,\"Doe, Jane\",10\n" +
			"u-2,,\"Doe, Jane\",10\n" +
			"u-3,Bad pages,\"Doe, Jane\",many\n" +
			"u-4,No author,,\n"
		res, store, err := read(t, data, backup.MergeSkip)
		require.NoError(t, err)
		assert.Equal(t, 2, res.BooksCreated)
		assert.Equal(t, 2, res.BooksFailed)
		require.Len(t, res.Failures, 2)
		assert.Equal(t, 3, res.Failures[0].Line)
		assert.Equal(t, 4, res.Failures[1].Line)

		noAuthor, _ := store.FindBookByUUID("u-4")
		require.NotNil(t, noAuthor)
		assert.Equal(t, backup.UnknownAuthor, noAuthor.Authors)
	})

	t.Run("byte order mark and alternate columns", func(t *testing.T) {
		data := "\ufeffuuid,title,family_name,given_names\nu-1,Emma,Austen,Jane\n"
		res, store, err := read(t, data, backup.MergeSkip)
		require.NoError(t, err)
		assert.Equal(t, 1, res.BooksCreated)
		got, _ := store.FindBookByUUID("u-1")
		require.NotNil(t, got)
		assert.Equal(t, "Austen, Jane", got.Authors)
	})

	t.Run("missing columns are fatal", func(t *testing.T) {
		_, _, err := read(t, "title,author_details\nA,B\n", backup.MergeSkip)
		assert.ErrorIs(t, err, backup.ErrInvalidArchive)

		_, _, err = read(t, "book_uuid,title\nu,A\n", backup.MergeSkip)
		assert.ErrorIs(t, err, backup.ErrInvalidArchive)

		_, _, err = read(t, "book_uuid,author_details\nu,A\n", backup.MergeSkip)
		assert.ErrorIs(t, err, backup.ErrInvalidArchive)

		_, _, err = read(t, "", backup.MergeSkip)
		assert.ErrorIs(t, err, backup.ErrInvalidArchive)
	})

	t.Run("only newer requires last update column", func(t *testing.T) {
		_, _, err := read(t, "book_uuid,title,author_details\nu,A,B\n", backup.MergeOnlyNewer)
		assert.ErrorIs(t, err, backup.ErrInvalidArchive)
	})

	t.Run("cancellation stops between rows", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("book_uuid,title,author_details\n")
		for _, id := range []string{"a", "b", "c", "d", "e"} {
			b.WriteString(id + ",Title " + id + ",Someone\n")
		}
		store := backuptest.NewBooks()
		res, err := New().ReadBooks(strings.NewReader(b.String()), backup.NewMerger(store, nil, backup.MergeSkip, nil), &backuptest.CancelAfter{N: 2})
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Equal(t, 2, res.BooksCreated)
		assert.Len(t, store.All(), 2)
	})
}

func TestSeries(t *testing.T) {
	title, number := parseSeries("Discworld (12)")
	assert.Equal(t, "Discworld", title)
	assert.Equal(t, "12", number)

	title, number = parseSeries("Standalone")
	assert.Equal(t, "Standalone", title)
	assert.Empty(t, number)

	assert.Equal(t, "Discworld (12)", formatSeries("Discworld", "12"))
	assert.Equal(t, "", formatSeries("", "3"))
}

func TestEscape(t *testing.T) {
	in := "a\r\nb\tc\\d"
	assert.Equal(t, `a\r\nb\tc\\d`, escape(in))
	assert.Equal(t, in, unescape(escape(in)))
}
