package backup

import (
	"errors"
	"io"
	"strings"
	"time"

	"github.com/mrlokans/bookvault/internal/entities"
)

// BookIterator yields books lazily; returning an error from fn stops the
// iteration and is passed through.
type BookIterator func(fn func(*entities.Book) error) error

// BookCodec serializes the books record kind.
type BookCodec interface {
	// WriteBooks writes every book the iterator yields that changed after
	// since (all books when since is nil).
	WriteBooks(w io.Writer, books BookIterator, since *time.Time, progress ProgressSink) (ExportResults, error)
	// ReadBooks decodes books and hands each to the merger. Bad records
	// are recorded as failures; only a structurally broken payload
	// returns an error.
	ReadBooks(r io.Reader, merger *Merger, progress ProgressSink) (ImportResults, error)
}

// StyleCodec serializes display styles.
type StyleCodec interface {
	WriteStyles(w io.Writer, styles []entities.Style) (ExportResults, error)
	ReadStyles(r io.Reader, merger *Merger) (ImportResults, error)
}

// PreferenceCodec serializes user preferences.
type PreferenceCodec interface {
	WritePreferences(w io.Writer, prefs []entities.Setting) (ExportResults, error)
	ReadPreferences(r io.Reader, store PreferenceStore) (ImportResults, error)
}

// ErrCancelled stops a BookIterator when the progress sink is cancelled.
var ErrCancelled = errors.New("operation cancelled")

// Placeholder author given to books imported without one.
const UnknownAuthor = "Unknown, Unknown"

var errBlankTitle = errors.New("title is blank")

// PrepareImportedBook enforces the fields every imported book must carry.
func PrepareImportedBook(b *entities.Book) error {
	b.Title = strings.TrimSpace(b.Title)
	if b.Title == "" {
		return errBlankTitle
	}
	if strings.TrimSpace(b.Authors) == "" {
		b.Authors = UnknownAuthor
	}
	b.UUID = strings.TrimSpace(b.UUID)
	return nil
}

// ChangedSince reports whether a record updated at t passes the cutoff.
func ChangedSince(t time.Time, since *time.Time) bool {
	return since == nil || t.After(*since)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// FormatTime renders a timestamp in archives: RFC 3339 in UTC, empty for
// the zero time.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime accepts the layouts found in archives. Values without a zone
// are taken as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
