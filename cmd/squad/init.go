package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/config"
	"github.com/ShayCichocki/squad/internal/team"
	"github.com/ShayCichocki/squad/internal/workspace"
	"github.com/ShayCichocki/squad/pkg/models"
)

var (
	initForce      bool
	initWithConfig bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a squad workspace",
	Long: `Initialize a directory for use with squad.

This command sets up everything needed to run squad:
  - Creates the .squad directory structure
  - Writes the default team member definitions
  - Optionally creates an example .squad.yaml configuration

The directory argument is optional and defaults to the current directory.

Examples:
  squad init                 # Initialize current directory
  squad init ./myproject     # Initialize specific directory
  squad init --force         # Reinitialize even if already set up
  squad init --with-config   # Create an example .squad.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Reinitialize even if already set up")
	initCmd.Flags().BoolVar(&initWithConfig, "with-config", false, "Create an example .squad.yaml configuration")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}

	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}

	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Printf("Initializing squad in %s...\n\n", absPath)

	ws := workspace.New(absPath)
	if _, err := os.Stat(ws.SquadDir()); err == nil && !initForce {
		fmt.Printf("Directory already initialized. Use --force to reinitialize.\n")
		return nil
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	if err := ws.EnsureLayout(); err != nil {
		printStatus("✗", "Could not create .squad directory", color.FgRed)
		return err
	}
	printStatus("✓", "Created .squad directory structure", color.FgGreen)

	members := make([]models.Member, 0, len(team.DefaultMembers()))
	for _, m := range team.DefaultMembers() {
		members = append(members, *m)
	}
	if err := ws.WriteTeam(members); err != nil {
		printStatus("✗", "Could not write team definitions", color.FgRed)
		return err
	}
	printStatus("✓", fmt.Sprintf("Wrote %d default team members to .squad/team", len(members)), color.FgGreen)

	if initWithConfig {
		cfgPath := filepath.Join(absPath, ".squad.yaml")
		if _, err := os.Stat(cfgPath); err == nil && !initForce {
			printStatus("⚠", ".squad.yaml already exists, leaving it alone", color.FgYellow)
		} else {
			cfg := config.Default()
			cfg.Defaults.Workspace = ""
			if err := config.SaveTo(cfg, cfgPath); err != nil {
				printStatus("✗", "Could not write .squad.yaml", color.FgRed)
				return err
			}
			printStatus("✓", "Created example .squad.yaml", color.FgGreen)
		}
	}

	fmt.Println()
	fmt.Println("Workspace ready. Try:")
	fmt.Println("  squad run \"describe what you want done\"")
	return nil
}

// printStatus prints a colored status symbol followed by a message.
func printStatus(symbol, message string, attr color.Attribute) {
	c := color.New(attr)
	c.Printf("%s ", symbol)
	fmt.Println(message)
}
