package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/bookvault/internal/backup"
	"github.com/mrlokans/bookvault/internal/backup/backuptest"
	"github.com/mrlokans/bookvault/internal/entities"
)

func TestCodec_Books(t *testing.T) {
	updated := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	src := backuptest.NewBooks(
		backuptest.Book("u-1", "One", updated),
		backuptest.Book("u-2", "Two", updated),
	)

	var buf bytes.Buffer
	res, err := New().WriteBooks(&buf, src.Iterator(), nil, backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Books)
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))

	dst := backuptest.NewBooks()
	imported, err := New().ReadBooks(&buf, backup.NewMerger(dst, nil, backup.MergeSkip, nil), backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, imported.BooksCreated)

	got, _ := dst.FindBookByUUID("u-2")
	require.NotNil(t, got)
	assert.Equal(t, "Two", got.Title)
	assert.True(t, updated.Equal(got.LastUpdated))
}

func TestCodec_ReadBooksSkipsMalformed(t *testing.T) {
	data := `{"book_uuid": "u-1", "title": "Kept", "author_details": "A"}
// a comment line
{"book_uuid": "u-2", "title": "Trailing comma",}
{not json
{"book_uuid": "u-3", "title": ""}
`
	store := backuptest.NewBooks()
	res, err := New().ReadBooks(strings.NewReader(data), backup.NewMerger(store, nil, backup.MergeSkip, nil), backup.NopProgress{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.BooksCreated)
	assert.Equal(t, 2, res.BooksFailed)
	require.Len(t, res.Failures, 2)
	assert.Equal(t, 4, res.Failures[0].Line)
	assert.Equal(t, 5, res.Failures[1].Line)
}

func TestCodec_Styles(t *testing.T) {
	styles := []entities.Style{
		{UUID: "s-1", Name: "Compact", TextScale: 2, Groups: "author; series"},
		{UUID: "s-2", Name: "Wide", ShowCovers: true},
	}
	var buf bytes.Buffer
	res, err := New().WriteStyles(&buf, styles)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Styles)

	store := backuptest.NewStyles()
	merger := backup.NewMerger(backuptest.NewBooks(), store, backup.MergeSkip, nil)
	imported, err := New().ReadStyles(&buf, merger)
	require.NoError(t, err)
	assert.Equal(t, 2, imported.Styles)

	got, _ := store.FindStyleByUUID("s-1")
	require.NotNil(t, got)
	assert.Equal(t, "Compact", got.Name)
	assert.Equal(t, []string{"author", "series"}, got.GroupList())
}

func TestCodec_Preferences(t *testing.T) {
	prefs := []entities.Setting{
		{Key: "ui.theme", Value: "dark", Type: entities.SettingTypeString},
		{Key: "ui.compact", Value: "true", Type: entities.SettingTypeBoolean},
		{Key: "ui.columns", Value: entities.EncodeItems([]string{"title", "author"}), Type: entities.SettingTypeList},
	}
	var buf bytes.Buffer
	res, err := New().WritePreferences(&buf, prefs)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Preferences)

	store := backuptest.NewPreferences()
	imported, err := New().ReadPreferences(&buf, store)
	require.NoError(t, err)
	assert.Equal(t, 3, imported.Preferences)

	theme, ok := store.Get("ui.theme")
	require.True(t, ok)
	assert.Equal(t, "dark", theme.Value)

	columns, ok := store.Get("ui.columns")
	require.True(t, ok)
	assert.Equal(t, entities.SettingTypeList, columns.Type)
	assert.Equal(t, []string{"title", "author"}, columns.Items())
}

func TestCodec_ReadPreferencesBareLiteral(t *testing.T) {
	store := backuptest.NewPreferences()
	res, err := New().ReadPreferences(strings.NewReader(`{"key":"n","type":"int","value":42}`+"\n"+`{"type":"int","value":1}`), store)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Preferences)
	assert.Len(t, res.Failures, 1)

	n, ok := store.Get("n")
	require.True(t, ok)
	assert.Equal(t, "42", n.Value)
}

func TestCodec_ReadPreferencesValidatesScalars(t *testing.T) {
	doc := strings.Join([]string{
		`{"key":"ui.size","type":"int","value":"<\"x"}`,
		`{"key":"ui.compact","type":"boolean","value":"maybe"}`,
		`{"key":"ui.scale","type":"double","value":"1.5"}`,
		`{"key":"ui.flag","type":"boolean","value":true}`,
		`{"key":"ui.odd","type":"widget","value":"x"}`,
	}, "\n")
	store := backuptest.NewPreferences()
	res, err := New().ReadPreferences(strings.NewReader(doc), store)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Preferences)
	require.Len(t, res.Failures, 3)
	assert.Equal(t, 1, res.Failures[0].Line)
	assert.Equal(t, 2, res.Failures[1].Line)
	assert.Equal(t, 5, res.Failures[2].Line)

	_, ok := store.Get("ui.size")
	assert.False(t, ok)
	scale, ok := store.Get("ui.scale")
	require.True(t, ok)
	assert.Equal(t, "1.5", scale.Value)
	flag, ok := store.Get("ui.flag")
	require.True(t, ok)
	assert.Equal(t, "true", flag.Value)
}
