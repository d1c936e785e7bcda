// Package backuptest provides in-memory stores for tests of the backup
// engine and its containers.
package backuptest

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

// Books is an in-memory backup.BookStore and backup.BookSource. Books are
// iterated in id order.
type Books struct {
	mu     sync.Mutex
	byID   map[uint]entities.Book
	nextID uint
}

func NewBooks(books ...*entities.Book) *Books {
	s := &Books{byID: make(map[uint]entities.Book), nextID: 1}
	for _, b := range books {
		if err := s.InsertBook(b); err != nil {
			panic(err)
		}
	}
	return s
}

func (s *Books) FindBookByUUID(uuid string) (*entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.byID {
		if b.UUID == uuid {
			return &b, nil
		}
	}
	return nil, nil
}

func (s *Books) FindBookByID(id uint) (*entities.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.byID[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (s *Books) InsertBook(b *entities.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if b.UUID != "" && existing.UUID == b.UUID {
			return fmt.Errorf("duplicate uuid %s", b.UUID)
		}
	}
	if b.ID == 0 {
		for {
			if _, taken := s.byID[s.nextID]; !taken {
				break
			}
			s.nextID++
		}
		b.ID = s.nextID
	}
	s.byID[b.ID] = *b
	return nil
}

func (s *Books) UpdateBook(b *entities.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[b.ID]; !ok {
		return fmt.Errorf("book %d not found", b.ID)
	}
	s.byID[b.ID] = *b
	return nil
}

func (s *Books) sorted(since *time.Time) []entities.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Book, 0, len(s.byID))
	for _, b := range s.byID {
		if backup.ChangedSince(b.LastUpdated, since) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Books) CountBooksSince(since *time.Time) (int, error) {
	return len(s.sorted(since)), nil
}

func (s *Books) IterateBooksSince(since *time.Time, fn func(*entities.Book) error) error {
	for _, b := range s.sorted(since) {
		if err := fn(&b); err != nil {
			return err
		}
	}
	return nil
}

// All returns every stored book in id order.
func (s *Books) All() []entities.Book {
	return s.sorted(nil)
}

// Iterator adapts the store to a backup.BookIterator.
func (s *Books) Iterator() backup.BookIterator {
	return func(fn func(*entities.Book) error) error {
		return s.IterateBooksSince(nil, fn)
	}
}

// Styles is an in-memory backup.StyleStore.
type Styles struct {
	mu     sync.Mutex
	styles map[string]entities.Style
}

func NewStyles(styles ...entities.Style) *Styles {
	s := &Styles{styles: make(map[string]entities.Style)}
	for _, st := range styles {
		s.styles[st.UUID] = st
	}
	return s
}

func (s *Styles) ListStyles() ([]entities.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entities.Style, 0, len(s.styles))
	for _, st := range s.styles {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UUID < out[j].UUID })
	return out, nil
}

func (s *Styles) FindStyleByUUID(uuid string) (*entities.Style, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.styles[uuid]; ok {
		return &st, nil
	}
	return nil, nil
}

func (s *Styles) SaveStyle(style *entities.Style) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.styles[style.UUID] = *style
	return nil
}

// Preferences is an in-memory backup.PreferenceStore.
type Preferences struct {
	mu    sync.Mutex
	prefs map[string]entities.Setting
}

func NewPreferences(prefs ...entities.Setting) *Preferences {
	p := &Preferences{prefs: make(map[string]entities.Setting)}
	for _, s := range prefs {
		p.prefs[s.Key] = s
	}
	return p
}

func (p *Preferences) ListPreferences() ([]entities.Setting, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]entities.Setting, 0, len(p.prefs))
	for _, s := range p.prefs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (p *Preferences) SetPreference(key, value string, typ entities.SettingType) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prefs[key] = entities.Setting{Key: key, Value: value, Type: typ}
	return nil
}

// Get returns a stored preference.
func (p *Preferences) Get(key string) (entities.Setting, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.prefs[key]
	return s, ok
}

type cover struct {
	data    []byte
	modTime time.Time
}

// Covers is an in-memory backup.CoverStore.
type Covers struct {
	mu     sync.Mutex
	covers map[string]cover
}

func NewCovers() *Covers {
	return &Covers{covers: make(map[string]cover)}
}

// Put stores a cover directly.
func (c *Covers) Put(name string, data []byte, modTime time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.covers[name] = cover{data: data, modTime: modTime}
}

// Get returns the bytes of a stored cover.
func (c *Covers) Get(name string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.covers[name]
	return cv.data, ok
}

// Len returns the number of stored covers.
func (c *Covers) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.covers)
}

func (c *Covers) Stat(name string) (*backup.CoverInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.covers[name]
	if !ok {
		return nil, nil
	}
	return &backup.CoverInfo{Name: name, ModTime: cv.modTime, Size: int64(len(cv.data))}, nil
}

func (c *Covers) Open(name string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cv, ok := c.covers[name]
	if !ok {
		return nil, fmt.Errorf("cover %s not found", name)
	}
	return io.NopCloser(bytes.NewReader(cv.data)), nil
}

func (c *Covers) Write(name string, r io.Reader, modTime time.Time) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.Put(name, data, modTime)
	return nil
}

// Dates is an in-memory backup.BackupDateStore.
type Dates struct {
	mu   sync.Mutex
	last *time.Time
}

func (d *Dates) LastFullBackup() (*time.Time, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last, nil
}

func (d *Dates) SetLastFullBackup(t time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = &t
	return nil
}

// Stores bundles fresh in-memory collaborators.
type Stores struct {
	Books       *Books
	Styles      *Styles
	Preferences *Preferences
	Covers      *Covers
	Dates       *Dates
}

func NewStores() *Stores {
	return &Stores{
		Books:       NewBooks(),
		Styles:      NewStyles(),
		Preferences: NewPreferences(),
		Covers:      NewCovers(),
		Dates:       &Dates{},
	}
}

// Backup returns the stores as backup.Stores.
func (s *Stores) Backup() backup.Stores {
	return backup.Stores{
		Books:       s.Books,
		BookSource:  s.Books,
		Styles:      s.Styles,
		Preferences: s.Preferences,
		Covers:      s.Covers,
		BackupDates: s.Dates,
	}
}

// CancelAfter is a ProgressSink that reports cancellation once n steps
// have been published.
type CancelAfter struct {
	N   int
	pos int
}

func (c *CancelAfter) SetMaxPos(int) {}

func (c *CancelAfter) Publish(delta int, _ string) { c.pos += delta }

func (c *CancelAfter) IsCancelled() bool { return c.pos >= c.N }

// Book builds a book with the fields every import requires.
func Book(uuid, title string, updated time.Time) *entities.Book {
	return &entities.Book{
		UUID:        uuid,
		Title:       title,
		Authors:     "Doe, Jane",
		DateAdded:   updated,
		LastUpdated: updated,
	}
}
