// Package codec maps record encodings to their serializers.
package codec

import (
	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/codec/csvcodec"
	"github.com/mrlokans/bookvault/internal/codec/jsoncodec"
	"github.com/mrlokans/bookvault/internal/codec/xmlcodec"
)

// Set is the codecs available for one encoding. Nil members mean the
// encoding cannot carry that record kind.
type Set struct {
	Books       backup.BookCodec
	Styles      backup.StyleCodec
	Preferences backup.PreferenceCodec
}

var registry = map[backup.RecordEncoding]Set{
	backup.EncodingTabular: {
		Books: csvcodec.New(),
	},
	backup.EncodingStructuredMarkup: {
		Books:       xmlcodec.New(),
		Styles:      xmlcodec.New(),
		Preferences: xmlcodec.New(),
	},
	backup.EncodingKeyValue: {
		Books:       jsoncodec.New(),
		Styles:      jsoncodec.New(),
		Preferences: jsoncodec.New(),
	},
}

// For returns the codecs for enc.
func For(enc backup.RecordEncoding) (Set, bool) {
	set, ok := registry[enc]
	return set, ok
}
