package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// getMigrationsFS returns the migrations as an fs.FS rooted at the
// directory holding the .sql files. The files are embedded so the
// binary carries its own schema history.
func getMigrationsFS() (fs.FS, error) {
	return fs.Sub(embeddedMigrations, "migrations")
}

// MigrationsFS exposes the embedded migrations for callers that manage
// the schema directly (startup checks, test fixtures).
func MigrationsFS() (fs.FS, error) {
	return getMigrationsFS()
}
