// Package settings provides database operations for application settings
// and user preferences.
//
// # Usage
//
//	repo := settings.NewRepository(db)
//	setting, err := repo.GetSetting("ui.theme")
package settings

import (
	"errors"

	"gorm.io/gorm"

	"github.com/mrlokans/bookvault/internal/entities"
)

// Repository handles all settings database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new settings repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetSetting retrieves a setting by key.
func (r *Repository) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := r.db.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

// SetSetting creates or updates a string setting.
func (r *Repository) SetSetting(key, value string) error {
	return r.SetPreference(key, value, entities.SettingTypeString)
}

// SetPreference creates or updates a setting together with its type.
// Implements backup.PreferenceStore.SetPreference.
func (r *Repository) SetPreference(key, value string, typ entities.SettingType) error {
	var setting entities.Setting
	result := r.db.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:   key,
			Value: value,
			Type:  typ,
		}
		return r.db.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	setting.Type = typ
	return r.db.Save(&setting).Error
}

// ListPreferences returns the user preferences, leaving out the internal
// keys the backup engine keeps for itself.
// Implements backup.PreferenceStore.ListPreferences.
func (r *Repository) ListPreferences() ([]entities.Setting, error) {
	var prefs []entities.Setting
	err := r.db.Where("key NOT LIKE ?", entities.SettingKeyPrefix+"%").
		Order("key ASC").
		Find(&prefs).Error
	return prefs, err
}

// DeleteSetting removes a setting by key.
func (r *Repository) DeleteSetting(key string) error {
	return r.db.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
