package config

// Default paths for databases
const (
	// DefaultDatabasePath is the default path for the main library database
	DefaultDatabasePath = "./librarian.db"

	// DefaultCoversDir is where downloaded cover images are cached
	DefaultCoversDir = "./covers"
)

// Supported database drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
