// Package csvcodec reads and writes the tabular book encoding: one header
// row plus one row per book.
//
// Text fields escape CR, LF, TAB and backslash as two-character sequences,
// so every record occupies exactly one physical line. Multi-valued fields
// (authors, bookshelves) are joined with "|".
package csvcodec

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

// Column names of the export header.
const (
	colID            = "_id"
	colUUID          = "book_uuid"
	colLastUpdate    = "last_update_date"
	colTitle         = "title"
	colAuthors       = "author_details"
	colISBN          = "isbn"
	colPublisher     = "publisher"
	colDatePublished = "date_published"
	colSeries        = "series_details"
	colPages         = "pages"
	colFormat        = "format"
	colLanguage      = "language"
	colGenre         = "genre"
	colLocation      = "location"
	colRating        = "rating"
	colRead          = "read"
	colReadStart     = "read_start"
	colReadEnd       = "read_end"
	colSigned        = "signed"
	colNotes         = "notes"
	colDescription   = "description"
	colBookshelf     = "bookshelf"
	colStyle         = "style_uuid"
	colDateAdded     = "date_added"
)

var header = []string{
	colID, colUUID, colLastUpdate, colTitle, colAuthors, colISBN, colPublisher,
	colDatePublished, colSeries, colPages, colFormat, colLanguage, colGenre,
	colLocation, colRating, colRead, colReadStart, colReadEnd, colSigned,
	colNotes, colDescription, colBookshelf, colStyle, colDateAdded,
}

// Alternative column names accepted on import, in order of preference.
var (
	identityColumns = []string{colUUID, "uuid", colID}
	authorColumns   = []string{colAuthors, "author_formatted", "author_name", "family_name"}
)

const listSeparator = "|"

// Codec implements backup.BookCodec for CSV.
type Codec struct{}

func New() *Codec {
	return &Codec{}
}

// WriteBooks writes the header and one row per book changed after since.
func (c *Codec) WriteBooks(w io.Writer, books backup.BookIterator, since *time.Time, progress backup.ProgressSink) (backup.ExportResults, error) {
	var res backup.ExportResults

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return res, fmt.Errorf("failed to write header: %w", err)
	}

	err := books(func(b *entities.Book) error {
		if progress.IsCancelled() {
			return backup.ErrCancelled
		}
		if !backup.ChangedSince(b.LastUpdated, since) {
			return nil
		}
		if err := cw.Write(bookToRecord(b)); err != nil {
			return err
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

	cw.Flush()
	if err := cw.Error(); err != nil {
		return res, fmt.Errorf("failed to flush books: %w", err)
	}
	return res, nil
}

func bookToRecord(b *entities.Book) []string {
	values := map[string]string{
		colID:            strconv.FormatUint(uint64(b.ID), 10),
		colUUID:          b.UUID,
		colLastUpdate:    backup.FormatTime(b.LastUpdated),
		colTitle:         b.Title,
		colAuthors:       strings.Join(b.AuthorList(), listSeparator),
		colISBN:          b.ISBN,
		colPublisher:     b.Publisher,
		colDatePublished: b.DatePublished,
		colSeries:        formatSeries(b.Series, b.SeriesNumber),
		colPages:         formatInt(b.Pages),
		colFormat:        b.Format,
		colLanguage:      b.Language,
		colGenre:         b.Genre,
		colLocation:      b.Location,
		colRating:        formatFloat(b.Rating),
		colRead:          formatBool(b.Read),
		colReadStart:     b.ReadStart,
		colReadEnd:       b.ReadEnd,
		colSigned:        formatBool(b.Signed),
		colNotes:         b.Notes,
		colDescription:   b.Description,
		colBookshelf:     strings.Join(b.BookshelfList(), listSeparator),
		colStyle:         b.StyleUUID,
		colDateAdded:     backup.FormatTime(b.DateAdded),
	}
	record := make([]string, len(header))
	for i, col := range header {
		record[i] = escape(values[col])
	}
	return record
}

// ReadBooks parses a CSV book table and merges every valid row. A missing
// header or required column is fatal; problems with single rows are not.
func (c *Codec) ReadBooks(r io.Reader, merger *backup.Merger, progress backup.ProgressSink) (backup.ImportResults, error) {
	var res backup.ImportResults

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	head, err := reader.Read()
	if err != nil {
		return res, &backup.InvalidArchiveError{Reason: "failed to read csv header", Err: err}
	}

	headerIndex := make(map[string]int)
	for i, h := range head {
		h = strings.TrimPrefix(h, "\ufeff")
		headerIndex[strings.ToLower(strings.TrimSpace(h))] = i
	}

	identityCol := firstPresent(headerIndex, identityColumns)
	authorCol := firstPresent(headerIndex, authorColumns)
	switch {
	case identityCol == "":
		return res, &backup.InvalidArchiveError{Reason: "missing identity column (book_uuid, uuid or _id)"}
	case authorCol == "":
		return res, &backup.InvalidArchiveError{Reason: "missing author column"}
	}
	if _, ok := headerIndex[colTitle]; !ok {
		return res, &backup.InvalidArchiveError{Reason: "missing required column: " + colTitle}
	}
	if _, ok := headerIndex[colLastUpdate]; !ok && merger.Policy == backup.MergeOnlyNewer {
		return res, &backup.InvalidArchiveError{Reason: "updating only newer books requires a " + colLastUpdate + " column"}
	}

	lineNum := 1 // Start at 1 because we already read the header
	for {
		if progress.IsCancelled() {
			res.Cancelled = true
			break
		}

		lineNum++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			res.BooksFailed++
			res = res.WithFailure(lineNum, err.Error())
			continue
		}

		row := rowReader{record: record, index: headerIndex}
		book, err := row.book(authorCol)
		if err == nil {
			err = backup.PrepareImportedBook(book)
		}
		if err != nil {
			res.BooksFailed++
			res = res.WithImportError(&backup.ImportError{Line: lineNum, Err: err})
			continue
		}

		res = res.Add(merger.MergeBook(lineNum, book))
		progress.Publish(1, book.Title)
	}

	return res, nil
}

type rowReader struct {
	record []string
	index  map[string]int
}

func (r rowReader) value(col string) string {
	if idx, ok := r.index[col]; ok && idx < len(r.record) {
		return unescape(r.record[idx])
	}
	return ""
}

func (r rowReader) trimmed(col string) string {
	return strings.TrimSpace(r.value(col))
}

func (r rowReader) book(authorCol string) (*entities.Book, error) {
	b := &entities.Book{
		UUID:          r.trimmed(colUUID),
		Title:         r.value(colTitle),
		ISBN:          r.trimmed(colISBN),
		Publisher:     r.value(colPublisher),
		DatePublished: r.trimmed(colDatePublished),
		Format:        r.value(colFormat),
		Language:      r.trimmed(colLanguage),
		Genre:         r.value(colGenre),
		Location:      r.value(colLocation),
		ReadStart:     r.trimmed(colReadStart),
		ReadEnd:       r.trimmed(colReadEnd),
		Notes:         r.value(colNotes),
		Description:   r.value(colDescription),
		StyleUUID:     r.trimmed(colStyle),
		Read:          parseBool(r.trimmed(colRead)),
		Signed:        parseBool(r.trimmed(colSigned)),
	}
	if b.UUID == "" {
		b.UUID = r.trimmed("uuid")
	}

	b.Authors = entities.JoinList(splitList(r.value(authorCol)))
	if authorCol == "family_name" {
		if given := r.trimmed("given_names"); given != "" && b.Authors != "" {
			b.Authors = b.Authors + ", " + given
		}
	}
	b.Bookshelves = entities.JoinList(splitList(r.value(colBookshelf)))
	b.Series, b.SeriesNumber = parseSeries(r.trimmed(colSeries))

	var err error
	if s := r.trimmed(colID); s != "" {
		id, perr := strconv.ParseUint(s, 10, 64)
		if perr != nil {
			return nil, fmt.Errorf("invalid %s %q", colID, s)
		}
		b.ID = uint(id)
	}
	if s := r.trimmed(colPages); s != "" {
		if b.Pages, err = strconv.Atoi(s); err != nil {
			return nil, fmt.Errorf("invalid %s %q", colPages, s)
		}
	}
	if s := r.trimmed(colRating); s != "" {
		if b.Rating, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("invalid %s %q", colRating, s)
		}
	}
	if b.LastUpdated, err = backup.ParseTime(r.trimmed(colLastUpdate)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", colLastUpdate, err)
	}
	if b.DateAdded, err = backup.ParseTime(r.trimmed(colDateAdded)); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", colDateAdded, err)
	}
	return b, nil
}

func firstPresent(index map[string]int, candidates []string) string {
	for _, c := range candidates {
		if _, ok := index[c]; ok {
			return c
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, listSeparator) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var seriesPattern = regexp.MustCompile(`^(.*?)\s*\(([^()]*)\)$`)

func formatSeries(title, number string) string {
	if title == "" {
		return ""
	}
	if number == "" {
		return title
	}
	return title + " (" + number + ")"
}

func parseSeries(s string) (title, number string) {
	if m := seriesPattern.FindStringSubmatch(s); m != nil {
		return m[1], strings.TrimSpace(m[2])
	}
	return s, ""
}

func formatInt(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y":
		return true
	}
	return false
}

var (
	escaper   = strings.NewReplacer("\\", `\\`, "\r", `\r`, "\n", `\n`, "\t", `\t`)
	unescaper = strings.NewReplacer(`\\`, "\\", `\r`, "\r", `\n`, "\n", `\t`, "\t")
)

func escape(s string) string {
	return escaper.Replace(s)
}

func unescape(s string) string {
	return unescaper.Replace(s)
}
