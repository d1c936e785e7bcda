package backup

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/entities"
)

func TestResolveRecordKind(t *testing.T) {
	cases := map[string]RecordKind{
		"INFO.xml":             RecordMetadata,
		"books.csv":            RecordBooks,
		"BOOKS.XML":            RecordBooks,
		"books.json":           RecordBooks,
		"books_2024-01-01.csv": RecordBooks,
		"styles.json":          RecordStyles,
		"preferences.xml":      RecordPreferences,
		"covers/12_front.jpg":  RecordCover,
		"covers\\12_back.PNG":  RecordCover,
		"library/metadata.db":  RecordDatabase,
		"notes.xml":            RecordUnknownXML,
		"preferences":          RecordLegacyPreferences,
		"style.blob.3":         RecordLegacyStyle,
		"readme.txt":           RecordUnknown,
	}
	for name, want := range cases {
		assert.Equal(t, want, ResolveRecordKind(name), name)
	}
}

func TestResolveEncoding(t *testing.T) {
	assert.Equal(t, EncodingTabular, ResolveEncoding("books.CSV"))
	assert.Equal(t, EncodingStructuredMarkup, ResolveEncoding("INFO.xml"))
	assert.Equal(t, EncodingKeyValue, ResolveEncoding("books.jsonl"))
	assert.Equal(t, EncodingRawImage, ResolveEncoding("1_front.jpg"))
	assert.Equal(t, EncodingUnknown, ResolveEncoding("preferences"))
}

func TestSniffBytes(t *testing.T) {
	t.Run("zip", func(t *testing.T) {
		assert.Equal(t, ContainerCompressedMulti, SniffBytes([]byte{0x50, 0x4B, 0x03, 0x04, 0x14}, "backup.bin"))
		assert.Equal(t, ContainerCompressedMulti, SniffBytes([]byte{0x50, 0x4B, 0x03, 0x04}, "x"))
	})

	t.Run("truncated zip magic", func(t *testing.T) {
		assert.Equal(t, ContainerUnknown, SniffBytes([]byte("PK\x03"), "x"))
	})

	t.Run("xml wins over csv name", func(t *testing.T) {
		assert.Equal(t, ContainerStructuredMarkup, SniffBytes([]byte(`<?xml version="1.0"?>`), "books.csv"))
	})

	t.Run("tar", func(t *testing.T) {
		head := make([]byte, 0x200)
		copy(head[0x101:], "ustar")
		assert.Equal(t, ContainerUncompressedMulti, SniffBytes(head, "backup"))
	})

	t.Run("tar magic ends the buffer", func(t *testing.T) {
		head := make([]byte, 0x106)
		copy(head[0x101:], "ustar")
		assert.Equal(t, ContainerUncompressedMulti, SniffBytes(head, "x"))
		assert.Equal(t, ContainerUnknown, SniffBytes(head[:0x105], "x"))
	})

	t.Run("sqlite", func(t *testing.T) {
		assert.Equal(t, ContainerBinaryDatabase, SniffBytes([]byte("SQLite format 3\x00rest"), "metadata.db"))
	})

	t.Run("csv by name", func(t *testing.T) {
		assert.Equal(t, ContainerTabular, SniffBytes([]byte("title,author\n"), "export.csv"))
		assert.Equal(t, ContainerTabular, SniffBytes([]byte("title,author\n"), "Export.CSV (2)"))
	})

	t.Run("unknown", func(t *testing.T) {
		assert.Equal(t, ContainerUnknown, SniffBytes([]byte("hello"), "notes.txt"))
		assert.Equal(t, ContainerUnknown, SniffBytes(nil, ""))
	})

	t.Run("source", func(t *testing.T) {
		src := BytesSource{FileName: "a.bin", Data: []byte{0x50, 0x4B, 0x03, 0x04}}
		assert.Equal(t, ContainerCompressedMulti, Sniff(src))
	})
}

func TestPrepareImportedBook(t *testing.T) {
	b := &entities.Book{Title: "  Dune ", UUID: " abc "}
	require.NoError(t, PrepareImportedBook(b))
	assert.Equal(t, "Dune", b.Title)
	assert.Equal(t, UnknownAuthor, b.Authors)
	assert.Equal(t, "abc", b.UUID)

	assert.Error(t, PrepareImportedBook(&entities.Book{Title: "   "}))
}

func TestParseTime(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	for _, s := range []string{"2024-03-01T12:30:00Z", "2024-03-01 12:30:00", "2024-03-01T12:30:00", "2024-03-01T14:30:00+02:00"} {
		got, err := ParseTime(s)
		require.NoError(t, err, s)
		assert.True(t, want.Equal(got), s)
	}

	zero, err := ParseTime("")
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = ParseTime("yesterday")
	assert.Error(t, err)

	assert.Equal(t, "", FormatTime(time.Time{}))
	assert.Equal(t, "2024-03-01T12:30:00Z", FormatTime(want))
}

func TestStageToFile(t *testing.T) {
	path, cleanup, err := StageToFile(BytesSource{FileName: "x", Data: []byte("payload")}, "stage-*")
	require.NoError(t, err)
	defer cleanup()

	rc, err := FileSource(path).Open()
	require.NoError(t, err)
	defer rc.Close()
	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	assert.Equal(t, "payload", buf.String())
}
