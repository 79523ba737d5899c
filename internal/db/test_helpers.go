package db

import (
	"path/filepath"
	"testing"
)

// newTestDB opens a fresh migrated database in a per-test temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	database, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	return database
}
