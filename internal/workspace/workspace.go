// Package workspace manages the on-disk layout of a squad workspace:
// the .squad directory, session reports, and team role documents.
package workspace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/squad/pkg/models"
)

// Workspace is rooted at a project directory. All squad artifacts live
// under <root>/.squad.
type Workspace struct {
	root string
}

// New creates a Workspace rooted at dir.
func New(dir string) *Workspace {
	return &Workspace{root: dir}
}

// Root returns the workspace root directory.
func (w *Workspace) Root() string {
	return w.root
}

// SquadDir returns the path to the .squad directory.
func (w *Workspace) SquadDir() string {
	return filepath.Join(w.root, ".squad")
}

// EnsureLayout creates the .squad directory tree.
func (w *Workspace) EnsureLayout() error {
	dirs := []string{
		w.SquadDir(),
		filepath.Join(w.SquadDir(), "reports"),
		filepath.Join(w.SquadDir(), "team"),
		filepath.Join(w.SquadDir(), "signals"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// ReportPath returns the report file path for a session.
func (w *Workspace) ReportPath(sessionID string) string {
	return filepath.Join(w.SquadDir(), "reports", sessionID+".json")
}

// WriteReport writes a session report as indented JSON.
func (w *Workspace) WriteReport(sessionID string, report any) error {
	if err := os.MkdirAll(filepath.Join(w.SquadDir(), "reports"), 0755); err != nil {
		return fmt.Errorf("create reports directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	path := w.ReportPath(sessionID)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// ReadReport reads a session report into out.
func (w *Workspace) ReadReport(sessionID string, out any) error {
	data, err := os.ReadFile(w.ReportPath(sessionID))
	if err != nil {
		return fmt.Errorf("read report: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal report: %w", err)
	}
	return nil
}

// ListReports returns the session IDs with a report on disk, sorted.
func (w *Workspace) ListReports() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(w.SquadDir(), "reports"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reports directory: %w", err)
	}

	var ids []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

// memberDoc is the YAML shape of a role document under .squad/team/.
type memberDoc struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Role            string   `yaml:"role"`
	Specializations []string `yaml:"specializations"`
	AllowedTools    []string `yaml:"allowed_tools"`
	Directive       string   `yaml:"directive"`
}

// WriteMember writes a role document for one member.
func (w *Workspace) WriteMember(m models.Member) error {
	teamDir := filepath.Join(w.SquadDir(), "team")
	if err := os.MkdirAll(teamDir, 0755); err != nil {
		return fmt.Errorf("create team directory: %w", err)
	}

	doc := memberDoc{
		ID:              m.ID,
		Name:            m.Name,
		Role:            m.Role,
		Specializations: m.Specializations,
		AllowedTools:    m.AllowedTools,
		Directive:       m.Directive,
	}

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal member %s: %w", m.ID, err)
	}

	path := filepath.Join(teamDir, m.ID+".yaml")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write member %s: %w", m.ID, err)
	}
	return nil
}

// WriteTeam writes role documents for every member.
func (w *Workspace) WriteTeam(members []models.Member) error {
	for _, m := range members {
		if err := w.WriteMember(m); err != nil {
			return err
		}
	}
	return nil
}

// LoadTeam reads all role documents under .squad/team. Returns nil when
// the directory does not exist so callers can fall back to defaults.
func (w *Workspace) LoadTeam() ([]models.Member, error) {
	teamDir := filepath.Join(w.SquadDir(), "team")
	entries, err := os.ReadDir(teamDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read team directory: %w", err)
	}

	var members []models.Member
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}

		data, err := os.ReadFile(filepath.Join(teamDir, name))
		if err != nil {
			return nil, fmt.Errorf("read role document %s: %w", name, err)
		}

		var doc memberDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse role document %s: %w", name, err)
		}
		if doc.ID == "" {
			return nil, fmt.Errorf("role document %s has no id", name)
		}

		specs := make([]string, 0, len(doc.Specializations))
		for _, s := range doc.Specializations {
			if !models.TaskKind(s).Valid() {
				return nil, fmt.Errorf("role document %s: unknown specialization %q", name, s)
			}
			specs = append(specs, s)
		}

		members = append(members, models.Member{
			ID:              doc.ID,
			Name:            doc.Name,
			Role:            doc.Role,
			Specializations: specs,
			AllowedTools:    doc.AllowedTools,
			Directive:       doc.Directive,
		})
	}

	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}
