package backup

// ContainerKind identifies the outer archive format.
type ContainerKind int

const (
	ContainerUnknown ContainerKind = iota
	ContainerCompressedMulti
	ContainerUncompressedMulti
	ContainerTabular
	ContainerStructuredMarkup
	ContainerBinaryDatabase
)

var containerNames = map[ContainerKind]string{
	ContainerUnknown:           "unknown",
	ContainerCompressedMulti:   "zip",
	ContainerUncompressedMulti: "tar",
	ContainerTabular:           "csv",
	ContainerStructuredMarkup:  "xml",
	ContainerBinaryDatabase:    "db",
}

func (k ContainerKind) String() string {
	if name, ok := containerNames[k]; ok {
		return name
	}
	return "unknown"
}

// ParseContainerKind maps a short name ("zip", "tar", "csv", "xml", "db")
// back to a ContainerKind.
func ParseContainerKind(name string) (ContainerKind, bool) {
	for k, n := range containerNames {
		if n == name && k != ContainerUnknown {
			return k, true
		}
	}
	return ContainerUnknown, false
}

// ContainerExtension returns the file extension, including the dot, used
// when writing a container of the given kind.
func ContainerExtension(k ContainerKind) string {
	if k == ContainerUnknown {
		return ""
	}
	return "." + containerNames[k]
}

type containerCapability struct {
	readable bool
	writable bool
	records  []RecordKind
}

var containerCapabilities = map[ContainerKind]containerCapability{
	ContainerCompressedMulti: {
		readable: true, writable: true,
		records: []RecordKind{RecordMetadata, RecordStyles, RecordPreferences, RecordBooks, RecordCover},
	},
	ContainerUncompressedMulti: {
		readable: true, writable: true,
		records: []RecordKind{RecordMetadata, RecordStyles, RecordPreferences, RecordBooks, RecordCover},
	},
	ContainerTabular: {
		readable: true, writable: true,
		records: []RecordKind{RecordBooks},
	},
	ContainerStructuredMarkup: {
		writable: true,
		records:  []RecordKind{RecordMetadata, RecordStyles, RecordPreferences, RecordBooks},
	},
	ContainerBinaryDatabase: {
		readable: true,
		records:  []RecordKind{RecordBooks},
	},
}

// CanRead reports whether an archive of kind k can be imported.
func CanRead(k ContainerKind) bool {
	return containerCapabilities[k].readable
}

// CanWrite reports whether an archive of kind k can be exported.
func CanWrite(k ContainerKind) bool {
	return containerCapabilities[k].writable
}

// Supports reports whether a container kind can carry records of kind r.
func Supports(k ContainerKind, r RecordKind) bool {
	for _, rk := range containerCapabilities[k].records {
		if rk == r {
			return true
		}
	}
	return false
}

// RecordKind is the semantic category of an entry's content.
type RecordKind int

const (
	RecordUnknown RecordKind = iota
	RecordMetadata
	RecordStyles
	RecordPreferences
	RecordBooks
	RecordCover
	RecordDatabase
	RecordUnknownXML
	RecordLegacyPreferences
	RecordLegacyStyle
)

var recordNames = map[RecordKind]string{
	RecordUnknown:           "unknown",
	RecordMetadata:          "metadata",
	RecordStyles:            "styles",
	RecordPreferences:       "preferences",
	RecordBooks:             "books",
	RecordCover:             "cover",
	RecordDatabase:          "database",
	RecordUnknownXML:        "xml",
	RecordLegacyPreferences: "legacy-preferences",
	RecordLegacyStyle:       "legacy-style",
}

func (k RecordKind) String() string {
	if name, ok := recordNames[k]; ok {
		return name
	}
	return "unknown"
}

// RecordEncoding is the serialization used for an entry's bytes.
type RecordEncoding int

const (
	EncodingUnknown RecordEncoding = iota
	EncodingTabular
	EncodingStructuredMarkup
	EncodingKeyValue
	EncodingRawImage
)

var encodingNames = map[RecordEncoding]string{
	EncodingUnknown:          "unknown",
	EncodingTabular:          "csv",
	EncodingStructuredMarkup: "xml",
	EncodingKeyValue:         "json",
	EncodingRawImage:         "image",
}

func (e RecordEncoding) String() string {
	if name, ok := encodingNames[e]; ok {
		return name
	}
	return "unknown"
}

// ParseEncoding maps "csv", "xml" or "json" to a RecordEncoding.
func ParseEncoding(name string) (RecordEncoding, bool) {
	for e, n := range encodingNames {
		if n == name && e != EncodingUnknown && e != EncodingRawImage {
			return e, true
		}
	}
	return EncodingUnknown, false
}

// EncodingExtension returns the file extension written for an encoding.
func EncodingExtension(e RecordEncoding) string {
	switch e {
	case EncodingTabular:
		return ".csv"
	case EncodingStructuredMarkup:
		return ".xml"
	case EncodingKeyValue:
		return ".json"
	case EncodingRawImage:
		return ".jpg"
	}
	return ""
}

// Fixed entry names written by the engine.
const (
	EntryInfo        = "INFO.xml"
	EntryStyles      = "styles"
	EntryPreferences = "preferences"
	EntryBooks       = "books"
)

// EntryName builds the archive entry name for a record kind in the given
// encoding. Metadata is always structured markup.
func EntryName(kind RecordKind, enc RecordEncoding) string {
	switch kind {
	case RecordMetadata:
		return EntryInfo
	case RecordStyles:
		return EntryStyles + EncodingExtension(enc)
	case RecordPreferences:
		return EntryPreferences + EncodingExtension(enc)
	case RecordBooks:
		return EntryBooks + EncodingExtension(enc)
	}
	return ""
}
