package xmlcodec

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

const (
	tagBooks       = "books"
	tagBook        = "book"
	tagAuthors     = "authors"
	tagAuthor      = "author"
	tagBookshelves = "bookshelves"
	tagBookshelf   = "bookshelf"

	bookTitle         = "title"
	bookISBN          = "isbn"
	bookPublisher     = "publisher"
	bookDatePublished = "datePublished"
	bookSeries        = "series"
	bookSeriesNumber  = "seriesNumber"
	bookPages         = "pages"
	bookFormat        = "format"
	bookLanguage      = "language"
	bookGenre         = "genre"
	bookLocation      = "location"
	bookRating        = "rating"
	bookRead          = "read"
	bookReadStart     = "readStart"
	bookReadEnd       = "readEnd"
	bookSigned        = "signed"
	bookNotes         = "notes"
	bookDescription   = "description"
	bookStyle         = "style"
	bookDateAdded     = "dateAdded"
	bookLastUpdate    = "lastUpdate"
)

func (c *Codec) WriteBooks(w io.Writer, books backup.BookIterator, since *time.Time, progress backup.ProgressSink) (backup.ExportResults, error) {
	var res backup.ExportResults

	x := newWriter(w)
	x.raw(declaration)
	x.open(tagBooks, intAttr(attrVersion, 1))

	err := books(func(b *entities.Book) error {
		if progress.IsCancelled() {
			return backup.ErrCancelled
		}
		if !backup.ChangedSince(b.LastUpdated, since) {
			return nil
		}
		writeBook(x, b)
		if x.err != nil {
			return x.err
		}
		res.Books++
		progress.Publish(1, b.Title)
		return nil
	})
	if errors.Is(err, backup.ErrCancelled) {
		res.Cancelled = true
	} else if err != nil {
		return res, fmt.Errorf("failed to write books: %w", err)
	}

	x.close(tagBooks)
	if err := x.flush(); err != nil {
		return res, fmt.Errorf("failed to write books: %w", err)
	}
	return res, nil
}

func writeBook(x *writer, b *entities.Book) {
	x.open(tagBook,
		intAttr(attrID, int64(b.ID)),
		strAttr(attrUUID, b.UUID),
		strAttr(bookTitle, b.Title),
		strAttr(bookISBN, b.ISBN),
		strAttr(bookPublisher, b.Publisher),
		strAttr(bookDatePublished, b.DatePublished),
		strAttr(bookSeries, b.Series),
		strAttr(bookSeriesNumber, b.SeriesNumber),
		intAttr(bookPages, int64(b.Pages)),
		strAttr(bookFormat, b.Format),
		strAttr(bookLanguage, b.Language),
		strAttr(bookGenre, b.Genre),
		strAttr(bookLocation, b.Location),
		floatAttr(bookRating, b.Rating),
		boolAttr(bookRead, b.Read),
		strAttr(bookReadStart, b.ReadStart),
		strAttr(bookReadEnd, b.ReadEnd),
		boolAttr(bookSigned, b.Signed),
		strAttr(bookNotes, b.Notes),
		strAttr(bookDescription, b.Description),
		strAttr(bookStyle, b.StyleUUID),
		timeAttr(bookDateAdded, b.DateAdded),
		timeAttr(bookLastUpdate, b.LastUpdated),
	)

	authors := b.AuthorList()
	x.open(tagAuthors, intAttr(attrSize, int64(len(authors))))
	for _, a := range authors {
		x.empty(tagAuthor, strAttr(attrName, a))
	}
	x.close(tagAuthors)

	if shelves := b.BookshelfList(); len(shelves) > 0 {
		x.open(tagBookshelves, intAttr(attrSize, int64(len(shelves))))
		for _, s := range shelves {
			x.empty(tagBookshelf, strAttr(attrName, s))
		}
		x.close(tagBookshelves)
	}

	x.close(tagBook)
}

func (c *Codec) ReadBooks(r io.Reader, merger *backup.Merger, progress backup.ProgressSink) (backup.ImportResults, error) {
	var res backup.ImportResults
	record := 0

	err := eachElement(r, tagBook, func(n *node) error {
		if progress.IsCancelled() {
			res.Cancelled = true
			return backup.ErrCancelled
		}
		record++

		book, err := nodeToBook(n)
		if err == nil {
			err = backup.PrepareImportedBook(book)
		}
		if err != nil {
			res.BooksFailed++
			res = res.WithImportError(&backup.ImportError{Line: record, Err: err})
			return nil
		}

		res = res.Add(merger.MergeBook(record, book))
		progress.Publish(1, book.Title)
		return nil
	})
	if err != nil && !errors.Is(err, backup.ErrCancelled) {
		return res, &backup.InvalidArchiveError{Reason: "malformed books document", Err: err}
	}
	return res, nil
}

func nodeToBook(n *node) (*entities.Book, error) {
	b := &entities.Book{
		UUID:          n.attr(attrUUID),
		Title:         n.attr(bookTitle),
		ISBN:          n.attr(bookISBN),
		Publisher:     n.attr(bookPublisher),
		DatePublished: n.attr(bookDatePublished),
		Series:        n.attr(bookSeries),
		SeriesNumber:  n.attr(bookSeriesNumber),
		Format:        n.attr(bookFormat),
		Language:      n.attr(bookLanguage),
		Genre:         n.attr(bookGenre),
		Location:      n.attr(bookLocation),
		Read:          n.attr(bookRead) == "true",
		ReadStart:     n.attr(bookReadStart),
		ReadEnd:       n.attr(bookReadEnd),
		Signed:        n.attr(bookSigned) == "true",
		Notes:         n.attr(bookNotes),
		Description:   n.attr(bookDescription),
		StyleUUID:     n.attr(bookStyle),
	}

	if authors := n.child(tagAuthors); authors != nil {
		b.Authors = entities.JoinList(childNames(authors, tagAuthor))
	}
	if shelves := n.child(tagBookshelves); shelves != nil {
		b.Bookshelves = entities.JoinList(childNames(shelves, tagBookshelf))
	}

	var err error
	if v := n.attr(attrID); v != "" {
		id, perr := strconv.ParseUint(v, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("invalid %s %q", attrID, v)
		}
		b.ID = uint(id)
	}
	if v := n.attr(bookPages); v != "" {
		if b.Pages, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid %s %q", bookPages, v)
		}
	}
	if v := n.attr(bookRating); v != "" {
		if b.Rating, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid %s %q", bookRating, v)
		}
	}
	if b.DateAdded, err = backup.ParseTime(n.attr(bookDateAdded)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", bookDateAdded, err)
	}
	if b.LastUpdated, err = backup.ParseTime(n.attr(bookLastUpdate)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", bookLastUpdate, err)
	}
	return b, nil
}

func childNames(n *node, tag string) []string {
	var names []string
	for _, c := range n.children {
		if c.name == tag {
			if name := c.attr(attrName); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}
