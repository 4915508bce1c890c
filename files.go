package pileapi

import (
	"embed"
)

//go:embed data/sql/migrations
var migrationsFS embed.FS

// GetMigrationsFS returns the migration files for this package
func GetMigrationsFS() embed.FS {
	return migrationsFS
}

// MigrationsDir returns the migration directory for a database driver
func MigrationsDir(driver string) string {
	if driver == DriverPostgres {
		return "data/sql/migrations/postgres"
	}
	return "data/sql/migrations/sqlite"
}
