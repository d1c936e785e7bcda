package backup

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mrlokans/bookvault/internal/entities"
)

// Merger decides insert, update or skip for each incoming record.
// It holds no transaction: each record is read then written on its own.
type Merger struct {
	Books  BookStore
	Styles StyleStore
	Policy MergePolicy
	Logger *slog.Logger

	knownStyles map[string]bool
}

// NewMerger creates a Merger. styles may be nil, in which case style
// references on books are kept as they are.
func NewMerger(books BookStore, styles StyleStore, policy MergePolicy, logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		Books:       books,
		Styles:      styles,
		Policy:      policy,
		Logger:      logger,
		knownStyles: make(map[string]bool),
	}
}

// MergeBook applies the merge policy to one incoming book. line locates
// the record in its source for failure reporting.
func (m *Merger) MergeBook(line int, in *entities.Book) ImportResults {
	var res ImportResults

	existing, err := m.lookup(in)
	if err != nil {
		return m.storageFailure(res, line, "look up book", err)
	}

	m.resolveStyle(in)

	if existing == nil {
		return m.insert(res, line, in)
	}

	switch m.Policy {
	case MergeOverwrite:
		return m.update(res, line, existing, in)
	case MergeOnlyNewer:
		if in.LastUpdated.After(existing.LastUpdated) {
			return m.update(res, line, existing, in)
		}
		return res
	default:
		res.BooksSkipped++
		return res
	}
}

func (m *Merger) lookup(in *entities.Book) (*entities.Book, error) {
	if in.UUID != "" {
		return m.Books.FindBookByUUID(in.UUID)
	}
	// Records without an identity can only match by their numeric id.
	if in.ID != 0 {
		return m.Books.FindBookByID(in.ID)
	}
	return nil, nil
}

func (m *Merger) insert(res ImportResults, line int, in *entities.Book) ImportResults {
	if in.ID != 0 {
		taken, err := m.Books.FindBookByID(in.ID)
		if err != nil {
			return m.storageFailure(res, line, "check book id", err)
		}
		if taken != nil {
			in.ID = 0
		}
	}
	if in.UUID == "" {
		in.UUID = uuid.NewString()
	}
	now := time.Now().UTC()
	if in.DateAdded.IsZero() {
		in.DateAdded = now
	}
	if in.LastUpdated.IsZero() {
		in.LastUpdated = now
	}

	if err := m.Books.InsertBook(in); err != nil {
		return m.storageFailure(res, line, "insert book", err)
	}
	res.BooksCreated++
	res.BooksProcessed++
	return res
}

func (m *Merger) update(res ImportResults, line int, existing, in *entities.Book) ImportResults {
	in.ID = existing.ID
	in.UUID = existing.UUID
	if in.DateAdded.IsZero() {
		in.DateAdded = existing.DateAdded
	}
	if in.LastUpdated.IsZero() {
		in.LastUpdated = time.Now().UTC()
	}

	if err := m.Books.UpdateBook(in); err != nil {
		return m.storageFailure(res, line, "update book", err)
	}
	res.BooksUpdated++
	res.BooksProcessed++
	return res
}

func (m *Merger) storageFailure(res ImportResults, line int, op string, err error) ImportResults {
	serr := &StorageError{Op: op, Err: err}
	m.Logger.Warn("book import failed", "line", line, "error", serr)
	res.BooksFailed++
	return res.WithFailure(line, serr.Error())
}

// resolveStyle drops a style reference that does not resolve against the
// store, so no book points at a missing style.
func (m *Merger) resolveStyle(in *entities.Book) {
	if in.StyleUUID == "" || m.Styles == nil {
		return
	}
	known, seen := m.styleCache()[in.StyleUUID]
	if !seen {
		style, err := m.Styles.FindStyleByUUID(in.StyleUUID)
		known = err == nil && style != nil
		m.knownStyles[in.StyleUUID] = known
	}
	if !known {
		m.Logger.Warn("dropping unknown style reference", "book", in.UUID, "style", in.StyleUUID)
		in.StyleUUID = ""
	}
}

// MergeStyle inserts or updates a style by its identity under the same
// policy as books. It returns whether the style was written.
func (m *Merger) MergeStyle(in *entities.Style) (bool, error) {
	if m.Styles == nil {
		return false, nil
	}
	if in.UUID == "" {
		return false, fmt.Errorf("style %q has no uuid", in.Name)
	}
	cache := m.styleCache()
	existing, err := m.Styles.FindStyleByUUID(in.UUID)
	if err != nil {
		return false, &StorageError{Op: "look up style", Err: err}
	}
	if existing != nil {
		switch m.Policy {
		case MergeSkip:
			cache[in.UUID] = true
			return false, nil
		case MergeOnlyNewer:
			if !in.UpdatedAt.After(existing.UpdatedAt) {
				cache[in.UUID] = true
				return false, nil
			}
		}
		in.ID = existing.ID
	} else {
		in.ID = 0
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = time.Now().UTC()
	}
	if err := m.Styles.SaveStyle(in); err != nil {
		return false, &StorageError{Op: "save style", Err: err}
	}
	cache[in.UUID] = true
	return true, nil
}

func (m *Merger) styleCache() map[string]bool {
	if m.knownStyles == nil {
		m.knownStyles = make(map[string]bool)
	}
	return m.knownStyles
}
