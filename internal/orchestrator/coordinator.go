package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ShayCichocki/squad/internal/cost"
	"github.com/ShayCichocki/squad/internal/engine"
	"github.com/ShayCichocki/squad/internal/graph"
	"github.com/ShayCichocki/squad/internal/hooks"
	"github.com/ShayCichocki/squad/internal/policy"
	"github.com/ShayCichocki/squad/internal/state"
	"github.com/ShayCichocki/squad/internal/team"
	"github.com/ShayCichocki/squad/internal/workspace"
	"github.com/ShayCichocki/squad/pkg/models"
)

// ErrSessionNotFound is returned for operations on unknown or ended sessions.
var ErrSessionNotFound = errors.New("session not found")

// DefaultTaskTimeout bounds one task execution when the config does not.
const DefaultTaskTimeout = 10 * time.Minute

// DefaultMaxParallel bounds concurrent task execution when the config
// does not.
const DefaultMaxParallel = 4

// Config contains configuration options for the Coordinator.
type Config struct {
	// WorkspaceDir is the directory members operate in.
	WorkspaceDir string
	// Runner executes member directives.
	Runner engine.Runner
	// Roster is the team available for assignment.
	Roster *team.Roster
	// Policy holds the configured permission rules.
	Policy *policy.Policy
	// Hooks is the lifecycle hook pipeline. Optional.
	Hooks *hooks.Pipeline
	// Rates prices token usage.
	Rates cost.RateTable
	// Store persists sessions and results. Optional.
	Store state.Store
	// TaskTimeout bounds each task execution.
	TaskTimeout time.Duration
	// MaxTurns bounds each task's conversation.
	MaxTurns int
	// MaxParallel bounds how many tasks run at once in ExecuteParallel.
	MaxParallel int
}

// Coordinator owns the session table and drives task execution. All
// methods are safe for concurrent use.
type Coordinator struct {
	cfg     Config
	ws      *workspace.Workspace
	emitter *EventEmitter

	mu       sync.RWMutex
	sessions map[string]*session
}

// session is the in-memory state of one active session.
type session struct {
	id        string
	objective string
	startedAt time.Time

	policyEngine *policy.Engine
	costs        *cost.Aggregator

	mu      sync.Mutex
	results []models.TaskResult
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.MaxTurns <= 0 {
		cfg.MaxTurns = engine.DefaultMaxTurns
	}
	if cfg.MaxParallel <= 0 {
		cfg.MaxParallel = DefaultMaxParallel
	}
	return &Coordinator{
		cfg:      cfg,
		ws:       workspace.New(cfg.WorkspaceDir),
		emitter:  NewEventEmitter(100),
		sessions: make(map[string]*session),
	}
}

// Events returns the coordinator's event stream.
func (c *Coordinator) Events() <-chan Event {
	return c.emitter.Events()
}

// Close shuts down the event stream. Call after all sessions have ended.
func (c *Coordinator) Close() {
	c.emitter.Close()
}

// StartSession creates a new session for the given objective and returns
// its ID. Each session gets its own policy engine (and audit ledger) and
// its own cost aggregator.
func (c *Coordinator) StartSession(objective string) (string, error) {
	if strings.TrimSpace(objective) == "" {
		return "", fmt.Errorf("session objective is empty")
	}

	s := &session{
		id:           uuid.New().String()[:8],
		objective:    objective,
		startedAt:    time.Now(),
		policyEngine: policy.NewEngine(c.cfg.Policy),
		costs:        cost.NewAggregator(c.cfg.Rates),
	}

	c.mu.Lock()
	c.sessions[s.id] = s
	c.mu.Unlock()

	if c.cfg.Store != nil {
		err := c.cfg.Store.CreateSession(&state.Session{
			ID:        s.id,
			Objective: objective,
			Status:    state.SessionActive,
			StartedAt: s.startedAt,
		})
		if err != nil {
			log.Printf("[orchestrator] persist session %s: %v", s.id, err)
		}
	}

	if c.cfg.Hooks != nil {
		c.cfg.Hooks.Dispatch(context.Background(), hooks.SessionStart, hooks.Payload{
			SessionID: s.id,
			Prompt:    objective,
		})
	}

	c.emitter.Emit(Event{
		Type:      EventSessionStarted,
		SessionID: s.id,
		Message:   objective,
		Timestamp: time.Now(),
	})

	log.Printf("[orchestrator] session %s started: %s", s.id, objective)
	return s.id, nil
}

// ExecuteTask assigns a member to the task, runs it to completion under
// the session's policy, and records the result. The returned result is
// also appended to the session; a task failure is reported in the result,
// not as an error.
func (c *Coordinator) ExecuteTask(ctx context.Context, sessionID string, task *models.Task) (*models.TaskResult, error) {
	s, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	if !task.Kind.Valid() {
		return nil, fmt.Errorf("unknown task kind %q", task.Kind)
	}

	member, err := c.assign(task)
	if err != nil {
		return nil, err
	}

	if c.cfg.Hooks != nil {
		c.cfg.Hooks.Dispatch(ctx, hooks.UserPromptSubmit, hooks.Payload{
			SessionID: sessionID,
			Prompt:    task.Description,
		})
	}

	c.emitter.Emit(Event{
		Type:      EventTaskStarted,
		SessionID: sessionID,
		TaskID:    task.ID,
		MemberID:  member.ID,
		Message:   task.Description,
		Timestamp: time.Now(),
	})

	result := c.runTask(ctx, s, task, member)

	s.mu.Lock()
	s.results = append(s.results, *result)
	s.mu.Unlock()

	if c.cfg.Store != nil {
		if err := c.cfg.Store.SaveTaskResult(sessionID, task.Kind, result); err != nil {
			log.Printf("[orchestrator] persist result %s: %v", task.ID, err)
		}
	}

	eventType := EventTaskCompleted
	var eventErr error
	if result.Status == models.TaskFailed {
		eventType = EventTaskFailed
		eventErr = errors.New(result.Error)
	}
	c.emitter.Emit(Event{
		Type:      eventType,
		SessionID: sessionID,
		TaskID:    task.ID,
		MemberID:  member.ID,
		Error:     eventErr,
		Timestamp: time.Now(),
		Cost:      s.costs.TotalCost(),
	})

	return result, nil
}

// ExecuteParallel runs the tasks concurrently, honoring DependsOn
// ordering, and returns results in input order. Independent tasks run
// at the same time, bounded by MaxParallel. A failing task does not
// cancel its siblings, but tasks depending on it are skipped and
// reported as failed.
func (c *Coordinator) ExecuteParallel(ctx context.Context, sessionID string, tasks []*models.Task) ([]models.TaskResult, error) {
	s, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}

	g := graph.New()
	if err := g.Build(tasks); err != nil {
		return nil, fmt.Errorf("build task graph: %w", err)
	}

	// Waves are scheduled in topological order so runs with the same
	// task set dispatch in the same order.
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("order task graph: %w", err)
	}
	rank := make(map[string]int, len(order))
	for i, id := range order {
		rank[id] = i
	}

	sem := make(chan struct{}, c.cfg.MaxParallel)
	byID := make(map[string]models.TaskResult, len(tasks))
	failed := make(map[string]bool)
	var mu sync.Mutex

	for {
		ready := g.Ready()
		if len(ready) == 0 {
			break
		}
		sort.Slice(ready, func(i, j int) bool { return rank[ready[i]] < rank[ready[j]] })

		var wg sync.WaitGroup
		for _, id := range ready {
			task := g.Task(id)

			// A task whose dependency failed is skipped, not executed.
			mu.Lock()
			depID := failedDependency(g, failed, id)
			mu.Unlock()
			if depID != "" {
				result := c.failTask(s, task, fmt.Sprintf("dependency %s failed", depID))
				mu.Lock()
				byID[id] = *result
				failed[id] = true
				mu.Unlock()
				continue
			}

			wg.Add(1)
			go func(task *models.Task) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				result, err := c.ExecuteTask(ctx, sessionID, task)
				if err != nil {
					// ExecuteTask returns an error before recording
					// anything, so the failure is recorded here.
					result = c.failTask(s, task, err.Error())
				}
				mu.Lock()
				byID[task.ID] = *result
				if result.Status == models.TaskFailed {
					failed[task.ID] = true
				}
				mu.Unlock()
			}(task)
		}
		wg.Wait()

		for _, id := range ready {
			g.MarkComplete(id)
		}
	}

	results := make([]models.TaskResult, len(tasks))
	for i, task := range tasks {
		results[i] = byID[task.ID]
	}
	return results, nil
}

// failedDependency returns the first failed dependency of the task, or
// an empty string if all its dependencies succeeded.
func failedDependency(g *graph.DependencyGraph, failed map[string]bool, id string) string {
	for _, depID := range g.Dependencies(id) {
		if failed[depID] {
			return depID
		}
	}
	return ""
}

// failTask records a failed result for a task that never ran, either
// because a dependency failed or because it was rejected before
// dispatch. The result lands in the session ledger so status and
// reports stay consistent with the returned slice.
func (c *Coordinator) failTask(s *session, task *models.Task, reason string) *models.TaskResult {
	result := &models.TaskResult{
		TaskID:   task.ID,
		MemberID: task.AssignedTo,
		Status:   models.TaskFailed,
		Error:    reason,
	}

	s.mu.Lock()
	s.results = append(s.results, *result)
	s.mu.Unlock()

	if c.cfg.Store != nil {
		if err := c.cfg.Store.SaveTaskResult(s.id, task.Kind, result); err != nil {
			log.Printf("[orchestrator] persist result %s: %v", task.ID, err)
		}
	}

	c.emitter.Emit(Event{
		Type:      EventTaskFailed,
		SessionID: s.id,
		TaskID:    task.ID,
		Error:     errors.New(reason),
		Timestamp: time.Now(),
		Cost:      s.costs.TotalCost(),
	})
	return result
}

// SessionStatus is a point-in-time summary of a session.
type SessionStatus struct {
	SessionID  string       `json:"session_id"`
	Objective  string       `json:"objective"`
	StartedAt  time.Time    `json:"started_at"`
	TaskCount  int          `json:"task_count"`
	Completed  int          `json:"completed"`
	Failed     int          `json:"failed"`
	TotalCost  float64      `json:"total_cost"`
	TotalUsage models.Usage `json:"total_usage"`
}

// Status reports the session's progress so far.
func (c *Coordinator) Status(sessionID string) (*SessionStatus, error) {
	s, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	status := &SessionStatus{
		SessionID:  s.id,
		Objective:  s.objective,
		StartedAt:  s.startedAt,
		TaskCount:  len(s.results),
		TotalCost:  s.costs.TotalCost(),
		TotalUsage: s.costs.TotalUsage(),
	}
	for _, r := range s.results {
		switch r.Status {
		case models.TaskCompleted:
			status.Completed++
		case models.TaskFailed:
			status.Failed++
		}
	}
	return status, nil
}

// Audit returns the session's permission decision ledger.
func (c *Coordinator) Audit(sessionID string) ([]policy.AuditEntry, error) {
	s, err := c.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.policyEngine.Audit().Entries(), nil
}

// EndSession closes a session: it builds the final report, writes it to
// the workspace, persists totals, and evicts the session from the table.
// Further operations on the ID return ErrSessionNotFound.
func (c *Coordinator) EndSession(ctx context.Context, sessionID string) (*SessionReport, error) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if ok {
		delete(c.sessions, sessionID)
	}
	c.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	report := buildReport(s)

	if err := c.ws.WriteReport(sessionID, report); err != nil {
		log.Printf("[orchestrator] write report %s: %v", sessionID, err)
	}

	if c.cfg.Store != nil {
		ended := report.EndedAt
		status := state.SessionCompleted
		if report.Failed > 0 {
			status = state.SessionFailed
		}
		err := c.cfg.Store.UpdateSession(&state.Session{
			ID:          s.id,
			Objective:   s.objective,
			Status:      status,
			StartedAt:   s.startedAt,
			EndedAt:     &ended,
			TotalCost:   report.TotalCost,
			TotalTokens: report.TotalUsage.Total(),
		})
		if err != nil {
			log.Printf("[orchestrator] persist session end %s: %v", sessionID, err)
		}
	}

	if c.cfg.Hooks != nil {
		c.cfg.Hooks.Dispatch(ctx, hooks.SessionEnd, hooks.Payload{SessionID: sessionID})
	}

	c.emitter.Emit(Event{
		Type:      EventSessionEnded,
		SessionID: sessionID,
		Timestamp: time.Now(),
		Cost:      report.TotalCost,
	})

	log.Printf("[orchestrator] session %s ended: %d tasks, $%.4f", sessionID, report.TaskCount, report.TotalCost)
	return report, nil
}

// session looks up an active session.
func (c *Coordinator) session(id string) (*session, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// assign binds a member to the task. Assignment happens exactly once; a
// pre-assigned task keeps its member if the roster still has it.
func (c *Coordinator) assign(task *models.Task) (*models.Member, error) {
	if task.AssignedTo != "" {
		if m := c.cfg.Roster.Get(task.AssignedTo); m != nil {
			return m, nil
		}
		return nil, fmt.Errorf("task %s assigned to unknown member %q", task.ID, task.AssignedTo)
	}

	member := c.cfg.Roster.SelectFor(task)
	if member == nil {
		return nil, fmt.Errorf("no member available for task %s", task.ID)
	}
	task.AssignedTo = member.ID
	return member, nil
}

// runTask executes one task through the runner and translates the
// outcome into a TaskResult. Only successful runs are priced: a failed
// task carries no usage and no cost.
func (c *Coordinator) runTask(ctx context.Context, s *session, task *models.Task, member *models.Member) *models.TaskResult {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.TaskTimeout)
	defer cancel()

	directive := engine.Directive{
		SystemPrompt: member.Directive,
		Prompt:       taskPrompt(task),
		AllowedTools: member.AllowedTools,
		MaxTurns:     c.cfg.MaxTurns,
		WorkDir:      c.cfg.WorkspaceDir,
		SessionID:    s.id,
		Permission:   c.permissionFor(s, task, member),
		Hooks:        c.cfg.Hooks,
	}

	runResult, err := c.cfg.Runner.Run(ctx, directive)
	if err != nil {
		return &models.TaskResult{
			TaskID:   task.ID,
			MemberID: member.ID,
			Status:   models.TaskFailed,
			Error:    err.Error(),
			Duration: time.Since(start),
		}
	}

	result := &models.TaskResult{
		TaskID:   task.ID,
		MemberID: member.ID,
		Status:   models.TaskCompleted,
		Output:   runResult.Output,
		Duration: time.Since(start),
	}

	// Record is idempotent per message ID, so a retried task cannot be
	// double-counted.
	if entry, recorded := s.costs.Record(runResult.MessageID, runResult.Usage); recorded {
		result.Usage = entry.Usage
		result.Cost = entry.Cost
	}

	return result
}

// permissionFor binds the session's policy engine to one task execution.
func (c *Coordinator) permissionFor(s *session, task *models.Task, member *models.Member) engine.PermissionFunc {
	ec := policy.EvalContext{
		SessionID:    s.id,
		MemberID:     member.ID,
		Priority:     task.Priority,
		WorkspaceDir: c.cfg.WorkspaceDir,
	}
	return func(ctx context.Context, tool string, input json.RawMessage) policy.Decision {
		decision := s.policyEngine.Evaluate(ctx, tool, input, ec)
		if c.cfg.Store != nil {
			err := c.cfg.Store.SaveAuditEntry(s.id, member.ID, tool, string(decision.Verdict), decision.Reason, time.Now())
			if err != nil {
				log.Printf("[orchestrator] persist audit entry: %v", err)
			}
		}
		return decision
	}
}

// taskPrompt renders the member-facing prompt for a task.
func taskPrompt(task *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Task (%s, priority %s): %s\n", task.Kind, task.Priority, task.Description)
	if len(task.Files) > 0 {
		fmt.Fprintf(&b, "\nRelevant files:\n")
		for _, f := range task.Files {
			fmt.Fprintf(&b, "- %s\n", f)
		}
	}
	if len(task.DependsOn) > 0 {
		fmt.Fprintf(&b, "\nThis task builds on completed tasks: %s\n", strings.Join(task.DependsOn, ", "))
	}
	return b.String()
}
