package xmlcodec

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/entities"
)

const (
	tagStyles = "styles"
	tagStyle  = "style"

	attrUUID = "uuid"

	styleName           = "name"
	stylePreferred      = "preferred"
	styleMenuPosition   = "menuPosition"
	styleGroups         = "groups"
	styleShowCovers     = "showCovers"
	styleCoverScale     = "coverScale"
	styleTextScale      = "textScale"
	styleExpansionLevel = "expansionLevel"
	styleUpdatedAt      = "updatedAt"
)

func (c *Codec) WriteStyles(w io.Writer, styles []entities.Style) (backup.ExportResults, error) {
	var res backup.ExportResults

	x := newWriter(w)
	x.raw(declaration)
	x.open(tagStyles, intAttr(attrVersion, 1), intAttr(attrSize, int64(len(styles))))
	for i := range styles {
		s := &styles[i]
		x.open(tagStyle, strAttr(attrUUID, s.UUID), strAttr(attrName, s.Name))
		x.typedBool(stylePreferred, s.Preferred)
		x.typedInt(styleMenuPosition, s.MenuPosition)
		x.typedCollection(tagList, styleGroups, s.GroupList())
		x.typedBool(styleShowCovers, s.ShowCovers)
		x.typedDouble(styleCoverScale, s.CoverScale)
		x.typedInt(styleTextScale, s.TextScale)
		x.typedLong(styleExpansionLevel, s.ExpansionLevel)
		x.typedString(styleUpdatedAt, backup.FormatTime(s.UpdatedAt))
		x.close(tagStyle)
		res.Styles++
	}
	x.close(tagStyles)

	if err := x.flush(); err != nil {
		return backup.ExportResults{}, fmt.Errorf("failed to write styles: %w", err)
	}
	return res, nil
}

func (c *Codec) ReadStyles(r io.Reader, merger *backup.Merger) (backup.ImportResults, error) {
	var res backup.ImportResults
	record := 0

	err := eachElement(r, tagStyle, func(n *node) error {
		record++
		style, err := nodeToStyle(n)
		if err == nil {
			var written bool
			written, err = merger.MergeStyle(style)
			if written {
				res.Styles++
			}
		}
		if err != nil {
			res = res.WithImportError(&backup.ImportError{Line: record, Err: err})
		}
		return nil
	})
	if err != nil {
		return res, &backup.InvalidArchiveError{Reason: "malformed styles document", Err: err}
	}
	return res, nil
}

func nodeToStyle(n *node) (*entities.Style, error) {
	values := typedValues(n)
	s := &entities.Style{
		UUID:       n.attr(attrUUID),
		Name:       n.attr(attrName),
		Preferred:  values[stylePreferred].value == "true",
		ShowCovers: values[styleShowCovers].value == "true",
		Groups:     entities.JoinList(values[styleGroups].items),
	}
	if s.Name == "" {
		s.Name = values[styleName].value
	}

	var err error
	if v := values[styleMenuPosition].value; v != "" {
		if s.MenuPosition, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid %s %q", styleMenuPosition, v)
		}
	}
	if v := values[styleTextScale].value; v != "" {
		if s.TextScale, err = strconv.Atoi(v); err != nil {
			return nil, fmt.Errorf("invalid %s %q", styleTextScale, v)
		}
	}
	if v := values[styleExpansionLevel].value; v != "" {
		if s.ExpansionLevel, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid %s %q", styleExpansionLevel, v)
		}
	}
	if v := values[styleCoverScale].value; v != "" {
		if s.CoverScale, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid %s %q", styleCoverScale, v)
		}
	}
	if s.UpdatedAt, err = backup.ParseTime(values[styleUpdatedAt].value); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", styleUpdatedAt, err)
	}
	return s, nil
}
