package database

import (
	"github.com/mrlokans/bookvault/internal/database/books"
	"github.com/mrlokans/bookvault/internal/database/settings"
	"github.com/mrlokans/bookvault/internal/database/styles"
	syncrepo "github.com/mrlokans/bookvault/internal/database/sync"
	"github.com/mrlokans/bookvault/internal/entities"
)

// Catalog groups the repositories of one catalog database.
type Catalog struct {
	*Database

	Books    *books.Repository
	Styles   *styles.Repository
	Settings *settings.Repository

	// ExportProgress and ImportProgress track the latest job of each type.
	ExportProgress *syncrepo.Repository
	ImportProgress *syncrepo.Repository
}

func NewCatalog(db *Database) *Catalog {
	return &Catalog{
		Database:       db,
		Books:          books.NewRepository(db.DB),
		Styles:         styles.NewRepository(db.DB),
		Settings:       settings.NewRepository(db.DB),
		ExportProgress: syncrepo.NewRepository(db.DB, entities.SyncTypeExport),
		ImportProgress: syncrepo.NewRepository(db.DB, entities.SyncTypeImport),
	}
}

// OpenCatalog opens and migrates the database at path.
func OpenCatalog(path string) (*Catalog, error) {
	db, err := NewDatabase(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(db), nil
}
