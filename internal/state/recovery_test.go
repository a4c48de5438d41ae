package state

import (
	"testing"
	"time"
)

func TestCheckForInterrupted_None(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	got, err := rm.CheckForInterrupted()
	if err != nil {
		t.Fatalf("CheckForInterrupted failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestCheckForInterrupted_SkipsFinished(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	done := &Session{ID: "sess-done", Objective: "a", Status: SessionCompleted, StartedAt: time.Now()}
	if err := db.CreateSession(done); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	got, err := rm.CheckForInterrupted()
	if err != nil {
		t.Fatalf("CheckForInterrupted failed: %v", err)
	}
	if got != nil {
		t.Errorf("completed session reported as interrupted: %+v", got)
	}
}

func TestClean(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	stale := &Session{ID: "sess-stale", Objective: "interrupted work", Status: SessionActive, StartedAt: time.Now().Add(-time.Hour)}
	if err := db.CreateSession(stale); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	interrupted, err := rm.CheckForInterrupted()
	if err != nil {
		t.Fatalf("CheckForInterrupted failed: %v", err)
	}
	if interrupted == nil || interrupted.SessionID != "sess-stale" {
		t.Fatalf("interrupted = %+v, want sess-stale", interrupted)
	}

	if err := rm.Clean("sess-stale"); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	got, err := db.GetSession("sess-stale")
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Status != SessionFailed {
		t.Errorf("Status = %s, want %s", got.Status, SessionFailed)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt should be set after Clean")
	}
}

func TestCleanAll(t *testing.T) {
	db := setupTestDB(t)
	rm := NewRecoveryManager(db)

	for _, id := range []string{"s1", "s2", "s3"} {
		s := &Session{ID: id, Objective: "work", Status: SessionActive, StartedAt: time.Now()}
		if err := db.CreateSession(s); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	cleaned, err := rm.CleanAll()
	if err != nil {
		t.Fatalf("CleanAll failed: %v", err)
	}
	if cleaned != 3 {
		t.Errorf("cleaned = %d, want 3", cleaned)
	}

	if got, _ := db.GetActiveSession(); got != nil {
		t.Errorf("active session remains after CleanAll: %+v", got)
	}
}
