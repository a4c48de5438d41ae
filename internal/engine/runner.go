// Package engine is the boundary to the model execution engine. A Runner
// accepts a directive describing one bounded tool-use conversation and
// yields a single terminal result carrying output text and token usage.
// Tool operations attempted during the conversation are gated through the
// supplied permission function and hook dispatcher.
package engine

import (
	"context"
	"encoding/json"

	"github.com/ShayCichocki/squad/internal/hooks"
	"github.com/ShayCichocki/squad/internal/policy"
	"github.com/ShayCichocki/squad/pkg/models"
)

// PermissionFunc adjudicates one tool operation before it executes.
type PermissionFunc func(ctx context.Context, tool string, input json.RawMessage) policy.Decision

// HookDispatcher dispatches lifecycle events during execution.
type HookDispatcher interface {
	Dispatch(ctx context.Context, event hooks.Event, payload hooks.Payload) hooks.Outcome
}

// Directive describes one task conversation for the engine.
type Directive struct {
	// SystemPrompt is the member directive driving the conversation.
	SystemPrompt string
	// Prompt is the task prompt.
	Prompt string
	// AllowedTools is the member's tool allow-list; operations outside
	// it are rejected before the permission gate is even consulted.
	AllowedTools []string
	// MaxTurns bounds the conversation length.
	MaxTurns int
	// WorkDir is the working directory for local tool execution.
	WorkDir string
	// SessionID identifies the owning session for hook payloads.
	SessionID string
	// Permission gates each tool operation. Required.
	Permission PermissionFunc
	// Hooks receives pre/post tool-use events. Optional.
	Hooks HookDispatcher
}

// Result is the single terminal record of one conversation.
type Result struct {
	// Success reports whether the conversation reached a normal end.
	Success bool
	// Output is the final assistant text.
	Output string
	// MessageID identifies the terminal message for cost deduplication.
	MessageID string
	// Usage is the token usage accumulated over the conversation.
	Usage models.Usage
	// Turns is the number of model calls made.
	Turns int
	// ToolCalls is the number of tool operations attempted.
	ToolCalls int
}

// Runner executes one directive to its terminal result. Implementations
// must honor ctx cancellation and must not emit anything after the
// terminal result.
type Runner interface {
	Run(ctx context.Context, d Directive) (*Result, error)
}
