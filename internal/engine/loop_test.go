package engine

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/ShayCichocki/squad/internal/hooks"
	"github.com/ShayCichocki/squad/internal/policy"
)

type fakeDispatcher struct {
	outcomes map[hooks.Event]hooks.Outcome
	calls    []hooks.Event
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, event hooks.Event, payload hooks.Payload) hooks.Outcome {
	f.calls = append(f.calls, event)
	if out, ok := f.outcomes[event]; ok {
		return out
	}
	return hooks.Continue
}

func allowAll(ctx context.Context, tool string, input json.RawMessage) policy.Decision {
	return policy.Decision{Verdict: policy.VerdictAllow, Reason: "test"}
}

func TestRunTool_NotInAllowList(t *testing.T) {
	runner := &APIRunner{}
	d := Directive{
		AllowedTools: []string{"Read"},
		Permission:   allowAll,
	}

	result, err := runner.runTool(context.Background(), d, NewToolExecutor(t.TempDir()), "Bash", json.RawMessage(`{"command":"ls"}`))

	if err != nil {
		t.Fatalf("runTool returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Expected error result for disallowed tool")
	}
	if !strings.Contains(result.Content, "allow-list") {
		t.Errorf("Result = %q, should mention allow-list", result.Content)
	}
}

func TestRunTool_PermissionDenied(t *testing.T) {
	runner := &APIRunner{}
	d := Directive{
		AllowedTools: []string{"Bash"},
		Permission: func(ctx context.Context, tool string, input json.RawMessage) policy.Decision {
			return policy.Decision{Verdict: policy.VerdictDeny, Reason: "not allowed here"}
		},
	}

	result, err := runner.runTool(context.Background(), d, NewToolExecutor(t.TempDir()), "Bash", json.RawMessage(`{"command":"ls"}`))

	if err != nil {
		t.Fatalf("runTool returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Denied operation should produce an error result")
	}
	if !strings.Contains(result.Content, "not allowed here") {
		t.Errorf("Result = %q, should carry the denial reason", result.Content)
	}
}

func TestRunTool_InterruptAbortsTask(t *testing.T) {
	runner := &APIRunner{}
	d := Directive{
		AllowedTools: []string{"Bash"},
		Permission: func(ctx context.Context, tool string, input json.RawMessage) policy.Decision {
			return policy.Decision{Verdict: policy.VerdictDeny, Reason: "dangerous", Interrupt: true}
		},
	}

	_, err := runner.runTool(context.Background(), d, NewToolExecutor(t.TempDir()), "Bash", json.RawMessage(`{"command":"rm -rf /"}`))

	if err == nil {
		t.Fatal("Expected error for interrupting denial")
	}
	if !strings.Contains(err.Error(), "dangerous") {
		t.Errorf("Error = %v, should carry the denial reason", err)
	}
}

func TestRunTool_HookBlocks(t *testing.T) {
	dispatcher := &fakeDispatcher{
		outcomes: map[hooks.Event]hooks.Outcome{
			hooks.PreToolUse: {Block: true, Reason: "hook says no"},
		},
	}
	runner := &APIRunner{}
	d := Directive{
		AllowedTools: []string{"Bash"},
		Permission:   allowAll,
		Hooks:        dispatcher,
	}

	result, err := runner.runTool(context.Background(), d, NewToolExecutor(t.TempDir()), "Bash", json.RawMessage(`{"command":"ls"}`))

	if err != nil {
		t.Fatalf("runTool returned error: %v", err)
	}
	if !result.IsError {
		t.Error("Blocked operation should produce an error result")
	}
	if !strings.Contains(result.Content, "hook says no") {
		t.Errorf("Result = %q, should carry the block reason", result.Content)
	}
	// PostToolUse must not fire for a blocked operation.
	for _, event := range dispatcher.calls {
		if event == hooks.PostToolUse {
			t.Error("PostToolUse fired for a blocked operation")
		}
	}
}

func TestRunTool_DispatchesHooksAroundExecution(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	runner := &APIRunner{}
	d := Directive{
		AllowedTools: []string{"Bash"},
		Permission:   allowAll,
		Hooks:        dispatcher,
	}

	result, err := runner.runTool(context.Background(), d, NewToolExecutor(t.TempDir()), "Bash", json.RawMessage(`{"command":"echo ok"}`))

	if err != nil {
		t.Fatalf("runTool returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("Execution failed: %s", result.Content)
	}
	if len(dispatcher.calls) != 2 ||
		dispatcher.calls[0] != hooks.PreToolUse ||
		dispatcher.calls[1] != hooks.PostToolUse {
		t.Errorf("Hook calls = %v, want [PreToolUse PostToolUse]", dispatcher.calls)
	}
}

func TestFilterTools(t *testing.T) {
	filtered := FilterTools([]string{"Read", "Grep"})

	if len(filtered) != 2 {
		t.Fatalf("FilterTools returned %d tools, want 2", len(filtered))
	}
	names := map[string]bool{}
	for _, tool := range filtered {
		names[tool.OfTool.Name] = true
	}
	if !names["Read"] || !names["Grep"] {
		t.Errorf("Filtered tools = %v, want Read and Grep", names)
	}
}

func TestFilterTools_Empty(t *testing.T) {
	if got := FilterTools(nil); len(got) != 0 {
		t.Errorf("FilterTools(nil) returned %d tools, want 0", len(got))
	}
}

func TestToolAllowed(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		tool    string
		want    bool
	}{
		{"present", []string{"Read", "Write"}, "Write", true},
		{"absent", []string{"Read"}, "Bash", false},
		{"empty list", nil, "Read", false},
		{"case sensitive", []string{"read"}, "Read", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := toolAllowed(tt.allowed, tt.tool); got != tt.want {
				t.Errorf("toolAllowed(%v, %q) = %v, want %v", tt.allowed, tt.tool, got, tt.want)
			}
		})
	}
}
