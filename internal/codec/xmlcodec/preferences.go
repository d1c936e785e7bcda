package xmlcodec

import (
	"fmt"
	"io"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

const tagPreferences = "preferences"

var tagToSettingType = map[string]entities.SettingType{
	tagString:       entities.SettingTypeString,
	tagBoolean:      entities.SettingTypeBoolean,
	tagInt:          entities.SettingTypeInt,
	tagLong:         entities.SettingTypeLong,
	tagFloat:        entities.SettingTypeFloat,
	tagDouble:       entities.SettingTypeDouble,
	tagList:         entities.SettingTypeList,
	tagSet:          entities.SettingTypeSet,
	tagSerializable: entities.SettingTypeString,
}

func (c *Codec) WritePreferences(w io.Writer, prefs []entities.Setting) (backup.ExportResults, error) {
	var res backup.ExportResults

	x := newWriter(w)
	x.raw(declaration)
	x.open(tagPreferences, intAttr(attrVersion, 1))
	for i := range prefs {
		p := &prefs[i]
		switch p.Type {
		case entities.SettingTypeList, entities.SettingTypeSet:
			x.typedCollection(string(p.Type), p.Key, p.Items())
		case entities.SettingTypeBoolean, entities.SettingTypeInt, entities.SettingTypeLong,
			entities.SettingTypeFloat, entities.SettingTypeDouble:
			x.typedScalar(string(p.Type), p.Key, p.Value)
		default:
			if Encode(p.Value) == "" {
				continue
			}
			x.typedString(p.Key, p.Value)
		}
		res.Preferences++
	}
	x.close(tagPreferences)

	if err := x.flush(); err != nil {
		return backup.ExportResults{}, fmt.Errorf("failed to write preferences: %w", err)
	}
	return res, nil
}

func (c *Codec) ReadPreferences(r io.Reader, store backup.PreferenceStore) (backup.ImportResults, error) {
	var res backup.ImportResults

	err := eachElement(r, tagPreferences, func(n *node) error {
		for i, child := range n.children {
			tv, ok := asTypedValue(child)
			if !ok {
				continue
			}
			typ, value, err := settingFromTyped(tv)
			if err == nil {
				err = store.SetPreference(tv.name, value, typ)
				if err != nil {
					err = &backup.StorageError{Op: "save preference " + tv.name, Err: err}
				}
			}
			if err != nil {
				res = res.WithFailure(i+1, err.Error())
				continue
			}
			res.Preferences++
		}
		return nil
	})
	if err != nil {
		return res, &backup.InvalidArchiveError{Reason: "malformed preferences document", Err: err}
	}
	return res, nil
}

func settingFromTyped(tv typedValue) (entities.SettingType, string, error) {
	typ := tagToSettingType[tv.tag]
	if typ == entities.SettingTypeList || typ == entities.SettingTypeSet {
		return typ, entities.EncodeItems(tv.items), nil
	}
	if err := entities.ValidateSettingValue(typ, tv.value); err != nil {
		return typ, "", fmt.Errorf("%s: %w", tv.name, err)
	}
	return typ, tv.value, nil
}
