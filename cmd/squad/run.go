package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/squad/internal/config"
	"github.com/ShayCichocki/squad/internal/engine"
	"github.com/ShayCichocki/squad/internal/hooks"
	"github.com/ShayCichocki/squad/internal/orchestrator"
	"github.com/ShayCichocki/squad/internal/policy"
	"github.com/ShayCichocki/squad/internal/state"
	"github.com/ShayCichocki/squad/internal/team"
	"github.com/ShayCichocki/squad/internal/workspace"
	"github.com/ShayCichocki/squad/pkg/models"
)

var (
	runKind      string
	runPriority  string
	runMember    string
	runObjective string
	runFiles     []string
	runParallel  bool
	runNoState   bool
)

var runCmd = &cobra.Command{
	Use:   "run <task> [task...]",
	Short: "Run one or more tasks as a session",
	Long: `Run tasks with the squad team.

Each argument is one task. Tasks are routed to the team member whose
specializations match the task kind; use --member to pin a specific
member instead. With --parallel, independent tasks run concurrently,
each against its own member.

Every tool operation a member attempts is checked against the
permission policy. Denied operations are reported back to the member;
critical denials abort the task. All decisions are recorded in the
session audit log.

Examples:
  squad run "add input validation to the signup handler"
  squad run --kind review "review the changes on the auth package"
  squad run --parallel "write tests for parser" "write tests for lexer"
  squad run --member analyst --kind analysis "map the request flow"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSession,
}

func init() {
	runCmd.Flags().StringVar(&runKind, "kind", "implementation", "Task kind: analysis, implementation, review, testing, deployment, or debugging")
	runCmd.Flags().StringVar(&runPriority, "priority", "medium", "Task priority: low, medium, high, or critical")
	runCmd.Flags().StringVar(&runMember, "member", "", "Pin all tasks to a specific member ID")
	runCmd.Flags().StringVar(&runObjective, "objective", "", "Session objective (defaults to the first task)")
	runCmd.Flags().StringSliceVar(&runFiles, "file", nil, "Scope tasks to specific files (repeatable)")
	runCmd.Flags().BoolVar(&runParallel, "parallel", false, "Run tasks concurrently instead of in order")
	runCmd.Flags().BoolVar(&runNoState, "no-state", false, "Skip the workspace state database")
}

func runSession(cmd *cobra.Command, args []string) (retErr error) {
	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("PANIC in runSession: %v", r)
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	kind := models.TaskKind(runKind)
	if !kind.Valid() {
		return fmt.Errorf("invalid kind %q: must be analysis, implementation, review, testing, deployment, or debugging", runKind)
	}
	priority := models.TaskPriority(runPriority)
	if !priority.Valid() {
		return fmt.Errorf("invalid priority %q: must be low, medium, high, or critical", runPriority)
	}

	workDir := cfg.Defaults.Workspace
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	ws := workspace.New(workDir)
	if err := ws.EnsureLayout(); err != nil {
		return fmt.Errorf("prepare workspace: %w", err)
	}

	roster, err := loadRoster(ws)
	if err != nil {
		return err
	}
	if runMember != "" && roster.Get(runMember) == nil {
		return fmt.Errorf("unknown member %q", runMember)
	}

	pol, err := policy.Load(cfg.Policy)
	if err != nil {
		return fmt.Errorf("load policy: %w", err)
	}

	var apiKey string
	if !cfg.Anthropic.UseBedrock {
		apiKey, err = config.GetAPIKey(cfg)
		if err != nil {
			return fmt.Errorf("resolve API key (set ANTHROPIC_API_KEY or run 'squad config set anthropic.api_key <key>'): %w", err)
		}
	}

	client, err := engine.NewClient(engine.ClientConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        apiKey,
		UseAWSBedrock: cfg.Anthropic.UseBedrock,
		AWSRegion:     cfg.Anthropic.BedrockRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
	})
	if err != nil {
		return fmt.Errorf("create API client: %w", err)
	}

	signals, err := engine.NewSignalManager(workDir)
	if err != nil {
		return fmt.Errorf("create signal manager: %w", err)
	}
	defer signals.Close()

	// State persistence is optional. A broken database should not stop
	// the session from running.
	var store state.Store
	if !runNoState {
		db, err := state.OpenWorkspace(workDir)
		if err != nil {
			fmt.Printf("Warning: state database unavailable: %v\n", err)
		} else {
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			reportInterrupted(db)
			store = db
		}
	}

	coord := orchestrator.New(orchestrator.Config{
		WorkspaceDir: workDir,
		Runner:       engine.NewAPIRunner(client, signals),
		Roster:       roster,
		Policy:       pol,
		Hooks:        hooks.NewPipeline(),
		Rates:        cfg.Rates,
		Store:        store,
		TaskTimeout:  cfg.Defaults.TaskTimeout,
		MaxTurns:     cfg.Defaults.MaxTurns,
		MaxParallel:  cfg.Defaults.MaxParallel,
	})
	defer coord.Close()

	go consumeEvents(coord.Events())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt, shutting down...")
		cancel()
	}()

	objective := runObjective
	if objective == "" {
		objective = args[0]
	}

	sessionID, err := coord.StartSession(objective)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	tasks := make([]*models.Task, len(args))
	for i, desc := range args {
		tasks[i] = &models.Task{
			ID:          uuid.New().String()[:8],
			Kind:        kind,
			Description: desc,
			Priority:    priority,
			Files:       runFiles,
			AssignedTo:  runMember,
			CreatedAt:   time.Now(),
		}
	}

	fmt.Printf("Session %s: %s\n", sessionID, objective)
	fmt.Printf("  Tasks: %d (%s, priority %s)\n", len(tasks), kind, priority)
	fmt.Println()

	if runParallel && len(tasks) > 1 {
		if _, err := coord.ExecuteParallel(ctx, sessionID, tasks); err != nil {
			endQuietly(coord, sessionID)
			return fmt.Errorf("execute tasks: %w", err)
		}
	} else {
		for _, task := range tasks {
			if _, err := coord.ExecuteTask(ctx, sessionID, task); err != nil {
				endQuietly(coord, sessionID)
				return fmt.Errorf("execute task %s: %w", task.ID, err)
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	report, err := coord.EndSession(context.Background(), sessionID)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}

	printReport(report, ws.ReportPath(sessionID))
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d tasks failed", report.Failed, report.TaskCount)
	}
	return nil
}

// loadRoster builds the team roster from the workspace team directory,
// falling back to the built-in members when none has been set up.
func loadRoster(ws *workspace.Workspace) (*team.Roster, error) {
	docs, err := ws.LoadTeam()
	if err != nil {
		return nil, fmt.Errorf("load team: %w", err)
	}
	if len(docs) == 0 {
		return team.NewRoster(team.DefaultMembers()), nil
	}
	members := make([]*models.Member, len(docs))
	for i := range docs {
		members[i] = &docs[i]
	}
	return team.NewRoster(members), nil
}

// reportInterrupted marks sessions left active by a previous process as
// failed. Sessions do not survive a restart.
func reportInterrupted(db *state.DB) {
	rm := state.NewRecoveryManager(db)
	n, err := rm.CleanAll()
	if err != nil {
		fmt.Printf("Warning: session recovery check failed: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Printf("Cleaned up %d interrupted session(s) from a previous run.\n", n)
	}
}

// endQuietly closes a session after a fatal error so its report still
// gets written. The original error is what the user sees.
func endQuietly(coord *orchestrator.Coordinator, sessionID string) {
	if _, err := coord.EndSession(context.Background(), sessionID); err != nil {
		fmt.Printf("Warning: end session: %v\n", err)
	}
}

func consumeEvents(events <-chan orchestrator.Event) {
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	cyan := color.New(color.FgCyan)

	for ev := range events {
		switch ev.Type {
		case orchestrator.EventTaskStarted:
			cyan.Printf("▶ [%s] task %s started (member: %s)\n", ev.SessionID, ev.TaskID, ev.MemberID)
		case orchestrator.EventTaskCompleted:
			green.Printf("✓ [%s] task %s completed (cost so far: $%.4f)\n", ev.SessionID, ev.TaskID, ev.Cost)
		case orchestrator.EventTaskFailed:
			red.Printf("✗ [%s] task %s failed: %s\n", ev.SessionID, ev.TaskID, ev.Error)
		case orchestrator.EventSessionEnded:
			fmt.Printf("  [%s] session ended\n", ev.SessionID)
		}
	}
}

func printReport(r *orchestrator.SessionReport, path string) {
	fmt.Println()
	fmt.Printf("Session %s finished in %s\n", r.SessionID, formatDuration(r.Duration))
	fmt.Printf("  Tasks: %d completed, %d failed\n", r.Completed, r.Failed)
	fmt.Printf("  Tokens: %s in / %s out\n",
		formatNumber(r.TotalUsage.InputTokens),
		formatNumber(r.TotalUsage.OutputTokens))
	fmt.Printf("  Cost: $%.4f\n", r.TotalCost)
	fmt.Printf("  Report: %s\n", path)
}
