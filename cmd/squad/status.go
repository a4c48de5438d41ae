package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/state"
	"github.com/ShayCichocki/squad/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show current session state",
	Long: `Display the current state of the squad workspace.

Shows:
  - The active session and its objective
  - Task results recorded so far
  - Token usage and cost
  - Recent completed sessions`,
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	// Try workspace database first, then global
	dbPath := state.WorkspaceDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No session history. Run 'squad run <task>' to start.")
		return nil
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	session, err := db.GetActiveSession()
	if err != nil {
		return fmt.Errorf("get active session: %w", err)
	}

	if session == nil {
		fmt.Println("No active session. Run 'squad run <task>' to start.")
		return displayRecentSessions(db)
	}

	displaySession(session)

	results, err := db.ListTaskResults(session.ID)
	if err != nil {
		return fmt.Errorf("list task results: %w", err)
	}
	displayResults(results)

	fmt.Println()
	return displayRecentSessions(db)
}

func displaySession(s *state.Session) {
	elapsed := formatDuration(time.Since(s.StartedAt))

	fmt.Printf("Current Session: %s\n", s.ID)
	fmt.Printf("  Objective: %s\n", s.Objective)
	fmt.Printf("  Started: %s ago\n", elapsed)
	fmt.Printf("  Status: %s\n", s.Status)
	fmt.Printf("  Tokens: %s\n", formatNumber(s.TotalTokens))
	fmt.Printf("  Cost: $%.4f\n", s.TotalCost)
}

func displayResults(results []models.TaskResult) {
	if len(results) == 0 {
		fmt.Println("  Tasks: none recorded yet")
		return
	}

	fmt.Printf("  Tasks: %d recorded\n", len(results))
	fmt.Println()
	for _, r := range results {
		line := fmt.Sprintf("  %s: %s (%s", r.TaskID, r.Status, r.MemberID)
		if r.Duration > 0 {
			line += fmt.Sprintf(", %s", formatDuration(r.Duration))
		}
		line += ")"
		fmt.Println(line)
	}
}

func displayRecentSessions(db *state.DB) error {
	sessions, err := db.ListSessions(nil)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	// Filter to non-active sessions and limit to 5
	var recent []state.Session
	for _, s := range sessions {
		if s.Status != state.SessionActive {
			recent = append(recent, s)
			if len(recent) >= 5 {
				break
			}
		}
	}

	if len(recent) == 0 {
		return nil
	}

	fmt.Println("Recent Sessions:")
	for _, s := range recent {
		elapsed := formatDuration(time.Since(s.StartedAt))
		fmt.Printf("  %s: %s, $%.4f (%s ago)\n", s.ID, s.Status, s.TotalCost, elapsed)
	}

	return nil
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		if m > 0 {
			return fmt.Sprintf("%dh%dm", h, m)
		}
		return fmt.Sprintf("%dh", h)
	}
	days := int(d.Hours()) / 24
	return fmt.Sprintf("%dd", days)
}

// formatNumber formats a number with commas.
func formatNumber(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	// Add commas every 3 digits from the right
	var result strings.Builder
	offset := len(s) % 3
	if offset > 0 {
		result.WriteString(s[:offset])
		if len(s) > offset {
			result.WriteString(",")
		}
	}
	for i := offset; i < len(s); i += 3 {
		result.WriteString(s[i : i+3])
		if i+3 < len(s) {
			result.WriteString(",")
		}
	}
	return result.String()
}
