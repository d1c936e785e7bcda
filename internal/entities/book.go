package entities

import (
	"strconv"
	"strings"
	"time"
)

// ListSeparator joins multi-valued text columns (authors, bookshelves).
const ListSeparator = "; "

type Book struct {
	ID            uint      `gorm:"primaryKey" json:"_id"`
	UUID          string    `gorm:"uniqueIndex;size:36" json:"book_uuid"`
	Title         string    `gorm:"index;size:512" json:"title"`
	Authors       string    `gorm:"size:1024" json:"author_details"`
	ISBN          string    `gorm:"index;size:32" json:"isbn,omitempty"`
	Publisher     string    `gorm:"size:256" json:"publisher,omitempty"`
	DatePublished string    `gorm:"size:32" json:"date_published,omitempty"`
	Series        string    `gorm:"size:256" json:"series,omitempty"`
	SeriesNumber  string    `gorm:"size:32" json:"series_number,omitempty"`
	Pages         int       `json:"pages,omitempty"`
	Format        string    `gorm:"size:64" json:"format,omitempty"`
	Language      string    `gorm:"size:16" json:"language,omitempty"`
	Genre         string    `gorm:"size:128" json:"genre,omitempty"`
	Location      string    `gorm:"size:256" json:"location,omitempty"`
	Rating        float64   `json:"rating,omitempty"`
	Read          bool      `json:"read,omitempty"`
	ReadStart     string    `gorm:"size:32" json:"read_start,omitempty"`
	ReadEnd       string    `gorm:"size:32" json:"read_end,omitempty"`
	Signed        bool      `json:"signed,omitempty"`
	Notes         string    `gorm:"type:text" json:"notes,omitempty"`
	Description   string    `gorm:"type:text" json:"description,omitempty"`
	Bookshelves   string    `gorm:"size:1024" json:"bookshelf,omitempty"`
	StyleUUID     string    `gorm:"size:36" json:"style_uuid,omitempty"`
	DateAdded     time.Time `json:"date_added"`
	LastUpdated   time.Time `gorm:"index" json:"last_update_date"`
}

func (Book) TableName() string {
	return "books"
}

// AuthorList returns the individual author names.
func (b *Book) AuthorList() []string {
	return SplitList(b.Authors)
}

// BookshelfList returns the names of the bookshelves the book is on.
func (b *Book) BookshelfList() []string {
	return SplitList(b.Bookshelves)
}

// CoverFileName returns the cover file name for the given slot (0 = front, 1 = back).
func (b *Book) CoverFileName(slot int) string {
	return CoverFileName(b.UUID, slot)
}

// CoverFileName builds the on-disk name of a cover image.
func CoverFileName(uuid string, slot int) string {
	if slot == 0 {
		return uuid + ".jpg"
	}
	return uuid + "_" + strconv.Itoa(slot) + ".jpg"
}

// CoverSlots is the number of cover images a book may carry.
const CoverSlots = 2

// SplitList splits a ListSeparator-joined column, dropping blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// JoinList is the inverse of SplitList.
func JoinList(items []string) string {
	return strings.Join(items, ListSeparator)
}
