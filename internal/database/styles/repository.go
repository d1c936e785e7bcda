// Package styles provides database operations for display styles.
package styles

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/bookvault/internal/entities"
)

// Repository handles all style database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new styles repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListStyles returns every style in menu order.
func (r *Repository) ListStyles() ([]entities.Style, error) {
	var styles []entities.Style
	err := r.db.Order("menu_position ASC, id ASC").Find(&styles).Error
	return styles, err
}

// FindStyleByUUID returns the style with the given identity, or nil.
func (r *Repository) FindStyleByUUID(uuid string) (*entities.Style, error) {
	var style entities.Style
	err := r.db.Where("uuid = ?", uuid).First(&style).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &style, nil
}

// SaveStyle inserts a style without an ID and updates one with an ID.
func (r *Repository) SaveStyle(style *entities.Style) error {
	if style.ID == 0 {
		return r.db.Create(style).Error
	}
	return r.db.Save(style).Error
}
