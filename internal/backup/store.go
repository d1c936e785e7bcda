package backup

import (
	"io"
	"time"

	"github.com/mrlokans/bookvault/internal/entities"
)

// BookStore is the identity-keyed contract the merge engine needs.
// The finders return (nil, nil) when no book matches.
type BookStore interface {
	FindBookByUUID(uuid string) (*entities.Book, error)
	FindBookByID(id uint) (*entities.Book, error)
	InsertBook(book *entities.Book) error
	UpdateBook(book *entities.Book) error
}

// BookSource streams books for export. since may be nil for all books.
type BookSource interface {
	CountBooksSince(since *time.Time) (int, error)
	IterateBooksSince(since *time.Time, fn func(*entities.Book) error) error
}

// StyleStore reads and upserts display styles. FindStyleByUUID returns
// (nil, nil) when the style does not exist.
type StyleStore interface {
	ListStyles() ([]entities.Style, error)
	FindStyleByUUID(uuid string) (*entities.Style, error)
	SaveStyle(style *entities.Style) error
}

// PreferenceStore reads and writes user preferences as typed strings.
type PreferenceStore interface {
	ListPreferences() ([]entities.Setting, error)
	SetPreference(key, value string, typ entities.SettingType) error
}

// BackupDateStore holds the date of the last full export.
type BackupDateStore interface {
	LastFullBackup() (*time.Time, error)
	SetLastFullBackup(t time.Time) error
}

// CoverInfo describes a cover file present in a CoverStore.
type CoverInfo struct {
	Name    string
	ModTime time.Time
	Size    int64
}

// CoverStore holds cover images by file name. Stat returns (nil, nil)
// for a missing file.
type CoverStore interface {
	Stat(name string) (*CoverInfo, error)
	Open(name string) (io.ReadCloser, error)
	Write(name string, r io.Reader, modTime time.Time) error
}

// Stores bundles the collaborators an import or export works against.
// Nil members disable the record kinds that need them.
type Stores struct {
	Books       BookStore
	BookSource  BookSource
	Styles      StyleStore
	Preferences PreferenceStore
	Covers      CoverStore
	BackupDates BackupDateStore
}
