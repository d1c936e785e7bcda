package config

// Default paths
const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./bookvault.db"

	// DefaultCoversDir holds cover images named after book UUIDs
	DefaultCoversDir = "./covers"

	// DefaultBackupDir receives scheduled and API-triggered archives
	DefaultBackupDir = "./backups"
)
