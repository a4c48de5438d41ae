package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/state"
)

var auditJSON bool

var auditCmd = &cobra.Command{
	Use:   "audit <session-id>",
	Short: "Show permission decisions for a session",
	Long: `Display the permission audit trail of a session.

Every tool operation a member attempts passes through the permission
policy, and every decision is recorded: the tool, the verdict, and
the reason. This command lists those decisions in the order they
were made.

Output formats:
  - Human-readable (default): one line per decision
  - JSON (--json flag): machine-readable structured output

Examples:
  squad audit a1b2c3d4
  squad audit a1b2c3d4 --json | jq '.[] | select(.verdict == "deny")'`,
	Args: cobra.ExactArgs(1),
	RunE: runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&auditJSON, "json", false, "Output in JSON format")
}

func runAudit(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}

	dbPath := state.WorkspaceDBPath(cwd)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		dbPath = state.GlobalDBPath()
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return fmt.Errorf("no session history found")
	}

	db, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	entries, err := db.ListAuditEntries(sessionID)
	if err != nil {
		return fmt.Errorf("list audit entries: %w", err)
	}

	if auditJSON {
		out := make([]auditOutput, len(entries))
		for i, e := range entries {
			out[i] = auditOutput{
				MemberID:   e.MemberID,
				Tool:       e.Tool,
				Verdict:    e.Verdict,
				Reason:     e.Reason,
				RecordedAt: e.RecordedAt.Format("2006-01-02T15:04:05Z07:00"),
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(entries) == 0 {
		fmt.Printf("No audit entries for session %s.\n", sessionID)
		return nil
	}

	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)

	fmt.Printf("Audit trail for session %s (%d entries):\n", sessionID, len(entries))
	for _, e := range entries {
		verdict := green
		if e.Verdict == "deny" {
			verdict = red
		}
		fmt.Printf("  %s  %-10s %-8s ", e.RecordedAt.Format("15:04:05"), e.MemberID, e.Tool)
		verdict.Printf("%-5s", e.Verdict)
		if e.Reason != "" {
			fmt.Printf("  %s", e.Reason)
		}
		fmt.Println()
	}
	return nil
}

type auditOutput struct {
	MemberID   string `json:"member_id"`
	Tool       string `json:"tool"`
	Verdict    string `json:"verdict"`
	Reason     string `json:"reason,omitempty"`
	RecordedAt string `json:"recorded_at"`
}
