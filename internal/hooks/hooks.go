// Package hooks implements the lifecycle hook pipeline. Named callbacks
// register against lifecycle events and run in registration order; a
// failing, panicking, or slow hook is logged and replaced with a neutral
// continue outcome so it can never wedge the coordinator.
package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"
)

// Event identifies a lifecycle point the pipeline dispatches on.
type Event string

const (
	// PreToolUse fires before a tool operation is executed.
	PreToolUse Event = "pre_tool_use"
	// PostToolUse fires after a tool operation has executed.
	PostToolUse Event = "post_tool_use"
	// SessionStart fires when a session is created.
	SessionStart Event = "session_start"
	// SessionEnd fires when a session is ended.
	SessionEnd Event = "session_end"
	// UserPromptSubmit fires when a task description is submitted.
	UserPromptSubmit Event = "user_prompt_submit"
	// PreCompact fires before conversation history is compacted.
	PreCompact Event = "pre_compact"
)

// Payload carries the event context to each hook.
type Payload struct {
	// Event is the lifecycle event being dispatched.
	Event Event `json:"event"`
	// SessionID identifies the owning session, if any.
	SessionID string `json:"session_id,omitempty"`
	// Tool is the operation kind for tool events.
	Tool string `json:"tool,omitempty"`
	// Input is the tool input for tool events.
	Input json.RawMessage `json:"input,omitempty"`
	// Output is the tool result for post-tool events.
	Output string `json:"output,omitempty"`
	// Prompt is the submitted text for prompt events.
	Prompt string `json:"prompt,omitempty"`
}

// Outcome is a hook's verdict on the event.
type Outcome struct {
	// Block, on a PreToolUse hook, surfaces an effective deny to the
	// coordinator independent of the policy engine's verdict.
	Block bool
	// Reason explains a block, for logs.
	Reason string
}

// Continue is the neutral outcome substituted for failed hooks.
var Continue = Outcome{}

// Func is a hook callback. It must return within the pipeline's
// per-hook timeout or it is treated as failed.
type Func func(ctx context.Context, p Payload) (Outcome, error)

// DefaultTimeout bounds each hook invocation.
const DefaultTimeout = 5 * time.Second

// DefaultHistoryCap bounds the retained execution history.
const DefaultHistoryCap = 200

// registration is one named hook bound to an event.
type registration struct {
	name    string
	matcher string // operation-kind matcher; empty always runs
	fn      Func
}

// Record is one entry in the pipeline's execution history.
type Record struct {
	Time    time.Time
	Event   Event
	Name    string
	Blocked bool
	Err     string
}

// Pipeline is a registry of hooks keyed by lifecycle event.
type Pipeline struct {
	mu      sync.RWMutex
	hooks   map[Event][]registration
	timeout time.Duration

	histMu     sync.Mutex
	history    []Record
	historyCap int
}

// NewPipeline creates an empty hook pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		hooks:      make(map[Event][]registration),
		timeout:    DefaultTimeout,
		historyCap: DefaultHistoryCap,
	}
}

// SetTimeout overrides the per-hook timeout.
func (p *Pipeline) SetTimeout(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if d > 0 {
		p.timeout = d
	}
}

// Register adds a named hook for an event. The matcher scopes the hook
// to a tool name for tool events; an empty matcher always runs. Hooks
// run in registration order.
func (p *Pipeline) Register(event Event, name, matcher string, fn Func) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.hooks[event] = append(p.hooks[event], registration{name: name, matcher: matcher, fn: fn})
}

// Dispatch runs all hooks registered for the event. The returned outcome
// is blocking if any pre-operation hook blocked; hooks do not see each
// other's return values. Failures never propagate: a hook that errors,
// panics, or exceeds the timeout is logged and treated as Continue.
func (p *Pipeline) Dispatch(ctx context.Context, event Event, payload Payload) Outcome {
	p.mu.RLock()
	regs := append([]registration(nil), p.hooks[event]...)
	timeout := p.timeout
	p.mu.RUnlock()

	payload.Event = event
	aggregate := Continue

	for _, reg := range regs {
		if reg.matcher != "" && reg.matcher != payload.Tool {
			continue
		}

		outcome, err := p.runOne(ctx, reg, payload, timeout)
		rec := Record{Time: time.Now(), Event: event, Name: reg.name, Blocked: outcome.Block}
		if err != nil {
			log.Printf("[hooks] hook %q on %s failed: %v", reg.name, event, err)
			rec.Err = err.Error()
			outcome = Continue
			rec.Blocked = false
		}
		p.record(rec)

		if outcome.Block {
			aggregate.Block = true
			if aggregate.Reason == "" {
				aggregate.Reason = fmt.Sprintf("blocked by hook %q: %s", reg.name, outcome.Reason)
			}
		}
	}

	return aggregate
}

// runOne invokes a single hook with panic recovery and a bounded wait.
func (p *Pipeline) runOne(ctx context.Context, reg registration, payload Payload, timeout time.Duration) (Outcome, error) {
	hookCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		outcome Outcome
		err     error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		o, err := reg.fn(hookCtx, payload)
		done <- result{outcome: o, err: err}
	}()

	select {
	case r := <-done:
		return r.outcome, r.err
	case <-hookCtx.Done():
		return Continue, fmt.Errorf("timed out after %s", timeout)
	}
}

// record appends to the bounded execution history, evicting the oldest
// half once the cap is exceeded.
func (p *Pipeline) record(r Record) {
	p.histMu.Lock()
	defer p.histMu.Unlock()

	p.history = append(p.history, r)
	if len(p.history) > p.historyCap {
		keep := len(p.history) / 2
		p.history = append([]Record(nil), p.history[len(p.history)-keep:]...)
	}
}

// History returns a snapshot copy of the execution history.
func (p *Pipeline) History() []Record {
	p.histMu.Lock()
	defer p.histMu.Unlock()

	return append([]Record(nil), p.history...)
}
