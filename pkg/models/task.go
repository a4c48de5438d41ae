package models

import "time"

// TaskKind classifies the work a task requires.
type TaskKind string

const (
	// TaskAnalysis indicates research or code analysis work.
	TaskAnalysis TaskKind = "analysis"
	// TaskImplementation indicates feature or fix implementation work.
	TaskImplementation TaskKind = "implementation"
	// TaskReview indicates code review work.
	TaskReview TaskKind = "review"
	// TaskTesting indicates test authoring or execution work.
	TaskTesting TaskKind = "testing"
	// TaskDeployment indicates release or deployment work.
	TaskDeployment TaskKind = "deployment"
	// TaskDebugging indicates defect investigation work.
	TaskDebugging TaskKind = "debugging"
)

// Valid returns true if the kind is a known value.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskAnalysis, TaskImplementation, TaskReview, TaskTesting, TaskDeployment, TaskDebugging:
		return true
	default:
		return false
	}
}

// TaskPriority ranks how urgently a task should be treated.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "low"
	PriorityMedium   TaskPriority = "medium"
	PriorityHigh     TaskPriority = "high"
	PriorityCritical TaskPriority = "critical"
)

// Valid returns true if the priority is a known value.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

// Escalated returns true for priorities that grant escalated trust
// when the permission policy falls through to its defaults.
func (p TaskPriority) Escalated() bool {
	return p == PriorityHigh || p == PriorityCritical
}

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskInProgress indicates the task is being worked on.
	TaskInProgress TaskStatus = "in_progress"
	// TaskCompleted indicates the task completed successfully.
	TaskCompleted TaskStatus = "completed"
	// TaskFailed indicates the task failed.
	TaskFailed TaskStatus = "failed"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskInProgress, TaskCompleted, TaskFailed:
		return true
	default:
		return false
	}
}

// Task represents a unit of work submitted to the coordinator.
type Task struct {
	// ID is the unique identifier for this task.
	ID string `json:"id"`
	// Kind classifies the work required.
	Kind TaskKind `json:"kind"`
	// Description provides detailed information about the task.
	Description string `json:"description"`
	// Priority ranks the task's urgency.
	Priority TaskPriority `json:"priority"`
	// Files lists files the task is scoped to, if any.
	Files []string `json:"files,omitempty"`
	// DependsOn lists task IDs that must complete before this task.
	DependsOn []string `json:"depends_on,omitempty"`
	// AssignedTo is the ID of the member working on this task.
	// Set exactly once, before execution begins.
	AssignedTo string `json:"assigned_to,omitempty"`
	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`
}

// TaskResult is the outcome of one task execution. It is created once
// and appended to the owning session's completed list, never mutated.
type TaskResult struct {
	// TaskID is the ID of the task this result belongs to.
	TaskID string `json:"task_id"`
	// MemberID is the ID of the member that executed the task.
	MemberID string `json:"member_id"`
	// Status is the terminal status of the task.
	Status TaskStatus `json:"status"`
	// Output is the result text produced by the member.
	Output string `json:"output,omitempty"`
	// Error contains the error summary if the task failed.
	Error string `json:"error,omitempty"`
	// Usage is the token usage attributed to this task.
	Usage Usage `json:"usage"`
	// Cost is the computed cost for this task in USD.
	Cost float64 `json:"cost"`
	// Duration is the wall-clock execution time.
	Duration time.Duration `json:"duration"`
}
