package entities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// SettingType records the scalar type a preference value was written with,
// so typed archive encodings can restore it faithfully.
type SettingType string

const (
	SettingTypeString  SettingType = "string"
	SettingTypeBoolean SettingType = "boolean"
	SettingTypeInt     SettingType = "int"
	SettingTypeLong    SettingType = "long"
	SettingTypeFloat   SettingType = "float"
	SettingTypeDouble  SettingType = "double"
	SettingTypeList    SettingType = "list"
	SettingTypeSet     SettingType = "set"
)

// ValidateSettingValue checks that value parses as a scalar of typ.
// Strings and collections are not checked.
func ValidateSettingValue(typ SettingType, value string) error {
	var err error
	switch typ {
	case SettingTypeString, SettingTypeList, SettingTypeSet:
		return nil
	case SettingTypeBoolean:
		_, err = strconv.ParseBool(value)
	case SettingTypeInt:
		_, err = strconv.ParseInt(value, 10, 32)
	case SettingTypeLong:
		_, err = strconv.ParseInt(value, 10, 64)
	case SettingTypeFloat:
		_, err = strconv.ParseFloat(value, 32)
	case SettingTypeDouble:
		_, err = strconv.ParseFloat(value, 64)
	default:
		return fmt.Errorf("unknown setting type %q", typ)
	}
	if err != nil {
		return fmt.Errorf("invalid %s value %q", typ, value)
	}
	return nil
}

type Setting struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	Key       string      `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string      `gorm:"type:text" json:"value"`
	Type      SettingType `gorm:"size:16" json:"type"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Internal keys are never exported as user preferences.
const (
	SettingKeyPrefix = "backup."

	SettingKeyLastFullBackup = "backup.last_full_backup"
	SettingKeyLastBackupFile = "backup.last_backup_file"

	SettingKeyBackupEnabled     = "backup.schedule_enabled"
	SettingKeyBackupSchedule    = "backup.schedule"
	SettingKeyBackupDir         = "backup.dir"
	SettingKeyBackupKeep        = "backup.keep_last"
	SettingKeyBackupLastStatus  = "backup.last_status"
	SettingKeyBackupLastMessage = "backup.last_message"
	SettingKeyBackupLastRunAt   = "backup.last_run_at"
)

// IsCollection reports whether the setting holds a list or set.
func (s *Setting) IsCollection() bool {
	return s.Type == SettingTypeList || s.Type == SettingTypeSet
}

// Items decodes the value of a list or set setting.
func (s *Setting) Items() []string {
	var items []string
	if err := json.Unmarshal([]byte(s.Value), &items); err != nil {
		return nil
	}
	return items
}

// EncodeItems encodes list or set items for storage in Value.
func EncodeItems(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}
