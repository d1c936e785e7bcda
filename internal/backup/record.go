package backup

import (
	"log/slog"
	"path"
	"regexp"
	"strings"
)

var fixedEntryKinds = map[string]RecordKind{
	"info.xml":         RecordMetadata,
	"books.csv":        RecordBooks,
	"books.xml":        RecordBooks,
	"books.json":       RecordBooks,
	"preferences.xml":  RecordPreferences,
	"preferences.json": RecordPreferences,
	"styles.xml":       RecordStyles,
	"styles.json":      RecordStyles,
}

var (
	booksTablePattern  = regexp.MustCompile(`^books.*\.csv$`)
	legacyStylePattern = regexp.MustCompile(`^style\.blob\.[0-9]*$`)
)

// ResolveRecordKind classifies an entry name. Matching is case-insensitive
// and uses only the base name.
func ResolveRecordKind(name string) RecordKind {
	base := strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))

	if isImageName(base) {
		return RecordCover
	}
	if kind, ok := fixedEntryKinds[base]; ok {
		return kind
	}
	if booksTablePattern.MatchString(base) {
		return RecordBooks
	}
	if strings.HasSuffix(base, ".db") {
		return RecordDatabase
	}
	if strings.HasSuffix(base, ".xml") {
		return RecordUnknownXML
	}
	if base == "preferences" {
		return RecordLegacyPreferences
	}
	if legacyStylePattern.MatchString(base) {
		return RecordLegacyStyle
	}

	slog.Debug("unrecognized archive entry", "name", name)
	return RecordUnknown
}

// ResolveEncoding picks the codec for an entry purely from its extension.
func ResolveEncoding(name string) RecordEncoding {
	lower := strings.ToLower(name)
	if isImageName(lower) {
		return EncodingRawImage
	}
	switch path.Ext(lower) {
	case ".csv":
		return EncodingTabular
	case ".xml":
		return EncodingStructuredMarkup
	case ".json", ".jsonl":
		return EncodingKeyValue
	}
	return EncodingUnknown
}

func isImageName(lower string) bool {
	return strings.HasSuffix(lower, ".jpg") || strings.HasSuffix(lower, ".png")
}
