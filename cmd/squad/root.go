package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "squad",
	Short: "Coordinated AI team execution",
	Long: `Squad coordinates a team of specialized AI members working toward
a shared objective.

A session groups related tasks under one objective. Each task is
routed to the member best suited for its kind, executed through the
Anthropic API with local tool access, and gated by a permission
policy that audits every tool operation.

Core capabilities:
- Routes tasks to specialized team members
- Runs independent tasks concurrently
- Gates every tool operation through a permission policy
- Tracks token usage and cost with per-message deduplication
- Writes a session report when the objective concludes`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}
