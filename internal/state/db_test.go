package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// tempDBPath returns a path to a temp database file.
func tempDBPath(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	return filepath.Join(dir, "test.db")
}

// setupTestDB creates a new temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(tempDBPath(t))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestOpen(t *testing.T) {
	path := tempDBPath(t)
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if db.Path() != path {
		t.Errorf("Path() = %q, want %q", db.Path(), path)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("database file does not exist at %s", path)
	}
}

func TestOpen_CreatesParentDirectories(t *testing.T) {
	dir := t.TempDir()
	nested := filepath.Join(dir, "a", "b", "c")
	path := filepath.Join(nested, "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(nested); os.IsNotExist(err) {
		t.Errorf("parent directories not created: %s", nested)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)

	// Running migrations again must be a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}
}

func TestWorkspaceDBPath(t *testing.T) {
	path := WorkspaceDBPath("/some/workspace")
	want := filepath.Join("/some/workspace", ".squad", "state.db")
	if path != want {
		t.Errorf("WorkspaceDBPath = %q, want %q", path, want)
	}
}

func TestPurgeOldSessions(t *testing.T) {
	db := setupTestDB(t)

	old := &Session{
		ID:        "sess-old",
		Objective: "stale work",
		Status:    SessionCompleted,
		StartedAt: time.Now().Add(-48 * time.Hour),
	}
	recent := &Session{
		ID:        "sess-recent",
		Objective: "fresh work",
		Status:    SessionActive,
		StartedAt: time.Now(),
	}
	if err := db.CreateSession(old); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	if err := db.CreateSession(recent); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	count, err := db.PurgeOldSessions(24 * time.Hour)
	if err != nil {
		t.Fatalf("PurgeOldSessions failed: %v", err)
	}
	if count != 1 {
		t.Errorf("purged %d sessions, want 1", count)
	}

	got, err := db.GetSession("sess-recent")
	if err != nil || got == nil {
		t.Errorf("recent session should survive purge, got %v, err %v", got, err)
	}
}
