package engine

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/squad/internal/hooks"
	"github.com/ShayCichocki/squad/internal/policy"
)

// DefaultMaxTurns bounds a conversation when the directive does not.
const DefaultMaxTurns = 30

// APIRunner runs directives against the Anthropic messages API, executing
// tool calls locally and gating each one through the directive's
// permission function and hook dispatcher.
type APIRunner struct {
	client  *Client
	signals *SignalManager
}

// NewAPIRunner creates an APIRunner over the given client. The signal
// manager is optional; when present, stop signals abort between turns.
func NewAPIRunner(client *Client, signals *SignalManager) *APIRunner {
	return &APIRunner{client: client, signals: signals}
}

// Run executes one bounded conversation and returns its terminal result.
// A returned error means the task failed; no result follows it.
func (r *APIRunner) Run(ctx context.Context, d Directive) (*Result, error) {
	if d.Permission == nil {
		return nil, fmt.Errorf("directive has no permission function")
	}

	maxTurns := d.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	tools := FilterTools(d.AllowedTools)
	executor := NewToolExecutor(d.WorkDir)
	result := &Result{}

	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(d.Prompt)),
	}

	for result.Turns < maxTurns {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("task canceled: %w", err)
		}
		if r.signals != nil && r.signals.ShouldStop() {
			return nil, fmt.Errorf("stop signal received")
		}
		result.Turns++

		resp, err := r.client.sdk().Messages.New(ctx, anthropic.MessageNewParams{
			Model:     r.client.Model(),
			MaxTokens: 8192,
			System: []anthropic.TextBlockParam{
				{Text: d.SystemPrompt},
			},
			Messages: messages,
			Tools:    tools,
		})
		if err != nil {
			return nil, fmt.Errorf("API call failed: %w", err)
		}

		result.MessageID = resp.ID
		result.Usage.InputTokens += resp.Usage.InputTokens
		result.Usage.OutputTokens += resp.Usage.OutputTokens
		result.Usage.CacheCreationTokens += resp.Usage.CacheCreationInputTokens
		result.Usage.CacheReadTokens += resp.Usage.CacheReadInputTokens

		var assistantBlocks []anthropic.ContentBlockParamUnion
		var toolResultBlocks []anthropic.ContentBlockParamUnion
		var textOutput string

		for _, block := range resp.Content {
			switch variant := block.AsAny().(type) {
			case anthropic.TextBlock:
				textOutput += variant.Text
				assistantBlocks = append(assistantBlocks, anthropic.NewTextBlock(variant.Text))

			case anthropic.ToolUseBlock:
				result.ToolCalls++
				assistantBlocks = append(assistantBlocks,
					anthropic.NewToolUseBlock(variant.ID, variant.Input, variant.Name))

				toolResult, err := r.runTool(ctx, d, executor, variant.Name, variant.Input)
				if err != nil {
					// Interrupt decisions abort the whole task.
					return nil, err
				}

				toolResultBlocks = append(toolResultBlocks,
					anthropic.NewToolResultBlock(variant.ID, toolResult.Content, toolResult.IsError))
			}
		}

		if resp.StopReason == anthropic.StopReasonEndTurn {
			result.Success = true
			result.Output = textOutput
			return result, nil
		}

		messages = append(messages, anthropic.NewAssistantMessage(assistantBlocks...))
		if len(toolResultBlocks) > 0 {
			messages = append(messages, anthropic.NewUserMessage(toolResultBlocks...))
		}
	}

	return nil, fmt.Errorf("max turns (%d) reached without terminal result", maxTurns)
}

// runTool gates and executes one tool operation. A denied operation
// produces an error tool result fed back to the model; an interrupting
// denial returns an error that aborts the task.
func (r *APIRunner) runTool(ctx context.Context, d Directive, executor *ToolExecutor, name string, input []byte) (ToolResult, error) {
	if !toolAllowed(d.AllowedTools, name) {
		return ToolResult{
			Content: fmt.Sprintf("Tool %q is not in this member's allow-list", name),
			IsError: true,
		}, nil
	}

	payload := hooks.Payload{
		SessionID: d.SessionID,
		Tool:      name,
		Input:     input,
	}

	if d.Hooks != nil {
		if out := d.Hooks.Dispatch(ctx, hooks.PreToolUse, payload); out.Block {
			return ToolResult{
				Content: fmt.Sprintf("Operation blocked: %s", out.Reason),
				IsError: true,
			}, nil
		}
	}

	decision := d.Permission(ctx, name, input)
	if decision.Verdict == policy.VerdictDeny {
		if decision.Interrupt {
			return ToolResult{}, fmt.Errorf("operation %s interrupted task: %s", name, decision.Reason)
		}
		return ToolResult{
			Content: fmt.Sprintf("Permission denied: %s", decision.Reason),
			IsError: true,
		}, nil
	}
	if decision.UpdatedInput != nil {
		input = decision.UpdatedInput
	}

	toolResult := executor.Execute(ctx, name, input)

	if d.Hooks != nil {
		payload.Input = input
		payload.Output = toolResult.Content
		d.Hooks.Dispatch(ctx, hooks.PostToolUse, payload)
	}

	return toolResult, nil
}

// toolAllowed reports whether name appears in the allow-list. An empty
// list allows nothing.
func toolAllowed(allowed []string, name string) bool {
	for _, a := range allowed {
		if a == name {
			return true
		}
	}
	return false
}
