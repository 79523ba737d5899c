package db

import (
	"path/filepath"
	"testing"
)

func TestMigrateUpDown(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "migrate.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}

	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion before: %v", err)
	}
	if version != 0 || dirty {
		t.Errorf("fresh db: version=%d dirty=%v", version, dirty)
	}

	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	version, dirty, err = database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion after: %v", err)
	}
	if version == 0 || dirty {
		t.Errorf("after up: version=%d dirty=%v", version, dirty)
	}

	// Schema usable.
	if err := database.InsertSession(testSession("s", 1700000000)); err != nil {
		t.Fatalf("InsertSession after migrate: %v", err)
	}

	// Up again is a no-op.
	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("second MigrateUp: %v", err)
	}

	if err := database.MigrateDown(migrationsFS); err != nil {
		t.Fatalf("MigrateDown: %v", err)
	}
	if err := database.InsertSession(testSession("s2", 1700000000)); err == nil {
		t.Error("sessions table should be gone after down migration")
	}
}

func TestGetLatestMigrationVersion(t *testing.T) {
	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}

	latest, err := GetLatestMigrationVersion(migrationsFS)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion: %v", err)
	}
	if latest < 1 {
		t.Errorf("latest = %d, want >= 1", latest)
	}
}

func TestCheckAndPromptMigrations(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "check.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer database.Close()

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}

	needed, err := database.CheckAndPromptMigrations(migrationsFS)
	if !needed || err == nil {
		t.Errorf("fresh db should need migrations: needed=%v err=%v", needed, err)
	}

	if err := database.MigrateUp(migrationsFS); err != nil {
		t.Fatalf("MigrateUp: %v", err)
	}

	needed, err = database.CheckAndPromptMigrations(migrationsFS)
	if needed || err != nil {
		t.Errorf("migrated db should be clean: needed=%v err=%v", needed, err)
	}
}

func TestBaselineAtVersion(t *testing.T) {
	database, err := OpenDB(filepath.Join(t.TempDir(), "baseline.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer database.Close()

	if err := database.BaselineAtVersion(1); err != nil {
		t.Fatalf("BaselineAtVersion: %v", err)
	}

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		t.Fatalf("getMigrationsFS: %v", err)
	}
	version, dirty, err := database.MigrateVersion(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("after baseline: version=%d dirty=%v", version, dirty)
	}

	if err := database.BaselineAtVersion(1); err == nil {
		t.Error("second baseline should fail")
	}
}
