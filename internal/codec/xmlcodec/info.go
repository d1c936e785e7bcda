package xmlcodec

import (
	"fmt"
	"io"
	"strconv"

	"github.com/mrlokans/bookvault/internal/backup"
)

const (
	tagInfo = "info"

	infoArchiveVersion = "archiveVersion"
	infoAppVersion     = "appVersion"
	infoCreateDate     = "createDate"
	infoBookCount      = "bookCount"
	infoCoverCount     = "coverCount"
	infoHasStyles      = "hasStyles"
	infoHasPreferences = "hasPreferences"
)

// WriteInfo writes the archive header document.
func WriteInfo(w io.Writer, info *backup.ArchiveInfo) error {
	x := newWriter(w)
	x.raw(declaration)
	x.open(tagInfo, intAttr(attrVersion, 1))
	x.typedInt(infoArchiveVersion, info.Version)
	x.typedString(infoAppVersion, info.AppVersion)
	x.typedString(infoCreateDate, backup.FormatTime(info.CreatedAt))
	if info.BookCount > 0 {
		x.typedInt(infoBookCount, info.BookCount)
	}
	if info.CoverCount > 0 {
		x.typedInt(infoCoverCount, info.CoverCount)
	}
	if info.HasStyles {
		x.typedBool(infoHasStyles, true)
	}
	if info.HasPreferences {
		x.typedBool(infoHasPreferences, true)
	}
	x.close(tagInfo)
	return x.flush()
}

// ReadInfo parses an archive header document.
func ReadInfo(r io.Reader) (*backup.ArchiveInfo, error) {
	var info *backup.ArchiveInfo
	err := eachElement(r, tagInfo, func(n *node) error {
		if info != nil {
			return nil
		}
		values := typedValues(n)
		parsed := &backup.ArchiveInfo{
			AppVersion:     values[infoAppVersion].value,
			HasStyles:      values[infoHasStyles].value == "true",
			HasPreferences: values[infoHasPreferences].value == "true",
		}
		var err error
		if parsed.Version, err = atoiOrZero(values[infoArchiveVersion].value); err != nil {
			return fmt.Errorf("invalid %s: %w", infoArchiveVersion, err)
		}
		if parsed.BookCount, err = atoiOrZero(values[infoBookCount].value); err != nil {
			return fmt.Errorf("invalid %s: %w", infoBookCount, err)
		}
		if parsed.CoverCount, err = atoiOrZero(values[infoCoverCount].value); err != nil {
			return fmt.Errorf("invalid %s: %w", infoCoverCount, err)
		}
		if parsed.CreatedAt, err = backup.ParseTime(values[infoCreateDate].value); err != nil {
			return fmt.Errorf("invalid %s: %w", infoCreateDate, err)
		}
		info = parsed
		return nil
	})
	if err != nil {
		return nil, &backup.InvalidArchiveError{Reason: "unreadable archive header", Err: err}
	}
	if info == nil {
		return nil, &backup.InvalidArchiveError{Reason: "archive header has no info element"}
	}
	return info, nil
}

func atoiOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
