// Package calibre imports books from a Calibre library database
// (metadata.db). It reads the catalog directly instead of going through
// entry codecs.
package calibre

import (
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

// Calibre ratings run from 0 to 10 (half stars); tags become bookshelves.
// Only the isbn identifier has a catalog field.
const booksQuery = `
	SELECT
		b.id,
		COALESCE(b.uuid, ''),
		COALESCE(b.title, ''),
		COALESCE(b.isbn, ''),
		COALESCE(b.pubdate, ''),
		COALESCE(b.series_index, 0),
		COALESCE(b.last_modified, ''),
		COALESCE(b.timestamp, ''),
		COALESCE(c.text, ''),
		COALESCE((SELECT s.name FROM books_series_link bsl
			JOIN series s ON s.id = bsl.series
			WHERE bsl.book = b.id LIMIT 1), ''),
		COALESCE((SELECT l.lang_code FROM books_languages_link bll
			JOIN languages l ON l.id = bll.lang_code
			WHERE bll.book = b.id ORDER BY bll.item_order LIMIT 1), ''),
		COALESCE((SELECT group_concat(a.sort, '; ') FROM books_authors_link bal
			JOIN authors a ON a.id = bal.author
			WHERE bal.book = b.id), ''),
		COALESCE((SELECT group_concat(p.name, '; ') FROM books_publishers_link bpl
			JOIN publishers p ON p.id = bpl.publisher
			WHERE bpl.book = b.id), ''),
		COALESCE((SELECT i.val FROM identifiers i
			WHERE i.book = b.id AND i.type = 'isbn' LIMIT 1), ''),
		COALESCE((SELECT r.rating FROM books_ratings_link brl
			JOIN ratings r ON r.id = brl.rating
			WHERE brl.book = b.id LIMIT 1), 0),
		COALESCE((SELECT group_concat(name, '; ') FROM (
			SELECT t.name AS name FROM books_tags_link btl
			JOIN tags t ON t.id = btl.tag
			WHERE btl.book = b.id ORDER BY t.name)), '')
	FROM books b
	LEFT JOIN comments c ON c.book = b.id
	ORDER BY b.id
`

// Calibre stores timestamps as text with a zone offset.
var calibreTimeLayouts = []string{
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02 15:04:05-07:00",
	"2006-01-02T15:04:05.999999-07:00",
}

// Calibre writes this as the publication date of books without one.
const undefinedPubYear = "0101"

type Reader struct {
	db      *sql.DB
	cleanup func()
	logger  *slog.Logger
	info    *backup.ArchiveInfo
	closed  bool
}

// NewReader opens a Calibre database read-only. The source is staged to a
// local file when needed.
func NewReader(src backup.Source, logger *slog.Logger) (*Reader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path, cleanup, err := backup.StageToFile(src, "bookvault-calibre-*.db")
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to open calibre database: %w", err)
	}

	var tables int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN ('books', 'authors', 'books_authors_link')`).Scan(&tables)
	if err != nil || tables != 3 {
		db.Close()
		cleanup()
		return nil, &backup.InvalidArchiveError{Reason: "not a calibre library database", Err: err}
	}

	return &Reader{db: db, cleanup: cleanup, logger: logger}, nil
}

// ReadHeader reports the number of books. Calibre records no creation
// date, so sync imports are not possible.
func (r *Reader) ReadHeader() (*backup.ArchiveInfo, error) {
	if r.info != nil {
		return r.info, nil
	}
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM books`).Scan(&count); err != nil {
		return nil, &backup.IOError{Op: "count calibre books", Err: err}
	}
	r.info = &backup.ArchiveInfo{BookCount: count}
	return r.info, nil
}

// Import merges every Calibre book. Records that fail validation are
// reported as failures and do not stop the run.
func (r *Reader) Import(merger *backup.Merger, progress backup.ProgressSink) (backup.ImportResults, error) {
	var results backup.ImportResults

	info, err := r.ReadHeader()
	if err != nil {
		return results, err
	}
	progress.SetMaxPos(info.BookCount)

	rows, err := r.db.Query(booksQuery)
	if err != nil {
		return results, &backup.IOError{Op: "query calibre books", Err: err}
	}
	defer rows.Close()

	line := 0
	for rows.Next() {
		if progress.IsCancelled() {
			results.Cancelled = true
			return results, nil
		}
		line++

		book, err := scanBook(rows)
		if err != nil {
			return results, &backup.IOError{Op: "read calibre book", Err: err}
		}
		if err := backup.PrepareImportedBook(book); err != nil {
			results.BooksFailed++
			results = results.WithImportError(&backup.ImportError{Line: line, Err: err})
			progress.Publish(1, "")
			continue
		}

		results = results.Add(merger.MergeBook(line, book))
		progress.Publish(1, book.Title)
	}
	if err := rows.Err(); err != nil {
		return results, &backup.IOError{Op: "read calibre books", Err: err}
	}

	r.logger.Info("calibre import finished", "books", results.BooksProcessed, "failed", results.BooksFailed)
	return results, nil
}

func scanBook(rows *sql.Rows) (*entities.Book, error) {
	var (
		id                                   int64
		uuid, title, isbn, pubdate           string
		seriesIndex                          float64
		lastModified, added, comment, series string
		language, authors, publishers, ident string
		rating                               float64
		tags                                 string
	)
	if err := rows.Scan(&id, &uuid, &title, &isbn, &pubdate, &seriesIndex, &lastModified,
		&added, &comment, &series, &language, &authors, &publishers, &ident, &rating, &tags); err != nil {
		return nil, err
	}

	book := &entities.Book{
		UUID:        uuid,
		Title:       title,
		Authors:     authors,
		ISBN:        isbn,
		Publisher:   publishers,
		Description: comment,
		Language:    language,
		Bookshelves: tags,
		Rating:      rating / 2,
		LastUpdated: parseCalibreTime(lastModified),
		DateAdded:   parseCalibreTime(added),
	}
	if book.ISBN == "" {
		book.ISBN = ident
	}
	if t := parseCalibreTime(pubdate); !t.IsZero() && !strings.HasPrefix(pubdate, undefinedPubYear) {
		book.DatePublished = t.Format("2006-01-02")
	}
	if series != "" {
		book.Series = series
		if seriesIndex > 0 {
			book.SeriesNumber = strconv.FormatFloat(seriesIndex, 'f', -1, 64)
		}
	}
	return book, nil
}

func parseCalibreTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range calibreTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	t, _ := backup.ParseTime(s)
	return t
}

func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.db.Close()
	r.cleanup()
	return err
}
