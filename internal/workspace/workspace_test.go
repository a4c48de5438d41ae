package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ShayCichocki/squad/pkg/models"
)

func TestEnsureLayout(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	if err := w.EnsureLayout(); err != nil {
		t.Fatalf("EnsureLayout failed: %v", err)
	}

	for _, sub := range []string{"reports", "team", "signals"} {
		path := filepath.Join(dir, ".squad", sub)
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing directory %s: %v", path, err)
		}
	}
}

func TestWriteAndReadReport(t *testing.T) {
	w := New(t.TempDir())

	type report struct {
		SessionID string  `json:"session_id"`
		TotalCost float64 `json:"total_cost"`
	}

	in := report{SessionID: "sess-1", TotalCost: 0.42}
	if err := w.WriteReport("sess-1", in); err != nil {
		t.Fatalf("WriteReport failed: %v", err)
	}

	var out report
	if err := w.ReadReport("sess-1", &out); err != nil {
		t.Fatalf("ReadReport failed: %v", err)
	}
	if out != in {
		t.Errorf("report round trip: got %+v, want %+v", out, in)
	}
}

func TestListReports(t *testing.T) {
	w := New(t.TempDir())

	if ids, err := w.ListReports(); err != nil || ids != nil {
		t.Fatalf("empty workspace: ids=%v, err=%v", ids, err)
	}

	for _, id := range []string{"b-session", "a-session"} {
		if err := w.WriteReport(id, map[string]string{"id": id}); err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
	}

	ids, err := w.ListReports()
	if err != nil {
		t.Fatalf("ListReports failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a-session" || ids[1] != "b-session" {
		t.Errorf("ListReports = %v, want sorted [a-session b-session]", ids)
	}
}

func TestWriteAndLoadTeam(t *testing.T) {
	w := New(t.TempDir())

	members := []models.Member{
		{
			ID:              "implementer",
			Name:            "Implementer",
			Role:            "software engineer",
			Specializations: []string{string(models.TaskImplementation)},
			AllowedTools:    []string{"Read", "Write", "Edit", "Bash"},
			Directive:       "You write production code.",
		},
		{
			ID:              "analyst",
			Name:            "Analyst",
			Role:            "code analyst",
			Specializations: []string{string(models.TaskAnalysis)},
			AllowedTools:    []string{"Read", "Grep", "Glob"},
			Directive:       "You investigate codebases.",
		},
	}

	if err := w.WriteTeam(members); err != nil {
		t.Fatalf("WriteTeam failed: %v", err)
	}

	loaded, err := w.LoadTeam()
	if err != nil {
		t.Fatalf("LoadTeam failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d members, want 2", len(loaded))
	}

	// Sorted by ID, so analyst first.
	if loaded[0].ID != "analyst" || loaded[1].ID != "implementer" {
		t.Errorf("member order = [%s %s], want [analyst implementer]", loaded[0].ID, loaded[1].ID)
	}
	got := loaded[1]
	if got.Role != "software engineer" {
		t.Errorf("Role = %q", got.Role)
	}
	if len(got.Specializations) != 1 || got.Specializations[0] != string(models.TaskImplementation) {
		t.Errorf("Specializations = %v", got.Specializations)
	}
	if len(got.AllowedTools) != 4 {
		t.Errorf("AllowedTools = %v", got.AllowedTools)
	}
	if got.Directive != "You write production code." {
		t.Errorf("Directive = %q", got.Directive)
	}
}

func TestLoadTeam_MissingDirectory(t *testing.T) {
	w := New(t.TempDir())

	members, err := w.LoadTeam()
	if err != nil {
		t.Fatalf("LoadTeam failed: %v", err)
	}
	if members != nil {
		t.Errorf("expected nil for missing team directory, got %v", members)
	}
}

func TestLoadTeam_RejectsUnknownSpecialization(t *testing.T) {
	dir := t.TempDir()
	w := New(dir)

	teamDir := filepath.Join(dir, ".squad", "team")
	if err := os.MkdirAll(teamDir, 0755); err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	doc := "id: bad\nname: Bad\nrole: x\nspecializations:\n  - juggling\n"
	if err := os.WriteFile(filepath.Join(teamDir, "bad.yaml"), []byte(doc), 0644); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	if _, err := w.LoadTeam(); err == nil {
		t.Error("expected error for unknown specialization")
	}
}
