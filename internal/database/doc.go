// Package database provides the data access layer for the catalog.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── catalog.go       # Repository bundle for one database
//	├── books/           # Book lookup, insert/update by identity, export iteration
//	├── styles/          # Display styles
//	├── settings/        # Preferences and internal key-value settings
//	└── sync/            # Backup job progress tracking
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./bookvault.db")
//
//	booksRepo := books.NewRepository(db.DB)
//	book, err := booksRepo.FindBookByUUID("0f7c...")
//
// Catalog builds every repository at once:
//
//	cat := database.NewCatalog(db)
//	n, err := cat.Books.CountBooksSince(nil)
//
// # Interface Implementations
//
//   - books.Repository: implements backup.BookStore
//   - styles.Repository: implements backup.StyleStore
//   - settings.Repository: implements backup.PreferenceStore
//   - sync.Repository: implements backup.ProgressReporter
//
// Compile-time checks live in internal/interfaces.
package database
