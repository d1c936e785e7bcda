// Package books provides database operations for the book catalog.
//
// This package implements the BookStore and BookSource interfaces defined in
// internal/backup/store.go.
//
// # Interface Implementation
//
//	var _ backup.BookStore = (*Repository)(nil)
//	var _ backup.BookSource = (*Repository)(nil)
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.FindBookByUUID("4f1c...")
package books

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/bookvault/internal/entities"
)

// exportBatchSize is the number of rows loaded per query while streaming.
const exportBatchSize = 200

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindBookByUUID returns the book with the given identity, or nil.
func (r *Repository) FindBookByUUID(uuid string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("uuid = ?", uuid).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// FindBookByID returns the book with the given row id, or nil.
func (r *Repository) FindBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// InsertBook creates a new book. A non-zero ID is kept as given.
func (r *Repository) InsertBook(book *entities.Book) error {
	if err := r.db.Create(book).Error; err != nil {
		return fmt.Errorf("failed to insert book %q: %w", book.Title, err)
	}
	return nil
}

// UpdateBook replaces every column of an existing book.
func (r *Repository) UpdateBook(book *entities.Book) error {
	if book.ID == 0 {
		return fmt.Errorf("cannot update book %q without an id", book.Title)
	}
	if err := r.db.Save(book).Error; err != nil {
		return fmt.Errorf("failed to update book %q: %w", book.Title, err)
	}
	return nil
}

func (r *Repository) since(since *time.Time) *gorm.DB {
	q := r.db.Model(&entities.Book{})
	if since != nil {
		q = q.Where("last_updated > ?", since.UTC())
	}
	return q
}

// CountBooksSince counts the books changed after since, or all books.
func (r *Repository) CountBooksSince(since *time.Time) (int, error) {
	var count int64
	if err := r.since(since).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// IterateBooksSince streams the books changed after since in id order.
// An error returned by fn stops the iteration and is passed through.
func (r *Repository) IterateBooksSince(since *time.Time, fn func(*entities.Book) error) error {
	var batch []entities.Book
	var fnErr error
	result := r.since(since).FindInBatches(&batch, exportBatchSize, func(tx *gorm.DB, _ int) error {
		for i := range batch {
			if err := fn(&batch[i]); err != nil {
				fnErr = err
				return err
			}
		}
		return nil
	})
	if fnErr != nil {
		return fnErr
	}
	return result.Error
}
