package styles

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/bookvault/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	dbPath := "./test_styles_" + t.Name() + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.Style{})
	require.NoError(t, err)

	repo := NewRepository(db)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return repo, cleanup
}

func TestRepository_SaveStyle_InsertThenUpdate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	updated := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	style := &entities.Style{UUID: "s-1", Name: "Compact", TextScale: 1, UpdatedAt: updated}
	require.NoError(t, repo.SaveStyle(style))
	require.NotZero(t, style.ID)

	style.Name = "Compact (large)"
	require.NoError(t, repo.SaveStyle(style))

	found, err := repo.FindStyleByUUID("s-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Compact (large)", found.Name)
	assert.True(t, updated.Equal(found.UpdatedAt))
}

func TestRepository_FindStyleByUUID_Missing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	style, err := repo.FindStyleByUUID("nope")
	require.NoError(t, err)
	assert.Nil(t, style)
}

func TestRepository_ListStyles_MenuOrder(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, repo.SaveStyle(&entities.Style{UUID: "s-b", Name: "Second", MenuPosition: 2}))
	require.NoError(t, repo.SaveStyle(&entities.Style{UUID: "s-a", Name: "First", MenuPosition: 1}))

	styles, err := repo.ListStyles()
	require.NoError(t, err)
	require.Len(t, styles, 2)
	assert.Equal(t, "First", styles[0].Name)
	assert.Equal(t, "Second", styles[1].Name)
}
