// Package policy implements the permission engine that adjudicates tool
// operations requested by team members. Rules are grouped into allow, deny,
// and ask buckets; deny strictly dominates, then allow, then ask, then a
// built-in default policy.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ShayCichocki/squad/pkg/models"
)

// Verdict is the outcome of a permission evaluation.
type Verdict string

const (
	// VerdictAllow permits the operation.
	VerdictAllow Verdict = "allow"
	// VerdictDeny blocks the operation.
	VerdictDeny Verdict = "deny"
)

// Decision is the result of evaluating one operation against the policy.
type Decision struct {
	// Verdict is allow or deny.
	Verdict Verdict
	// Reason explains the decision for logs and audit.
	Reason string
	// UpdatedInput, if non-nil, replaces the operation input.
	UpdatedInput json.RawMessage
	// Ask marks allow decisions that would require human confirmation
	// in an interactive context.
	Ask bool
	// Interrupt marks deny decisions that must halt the enclosing task.
	// An interrupt decision is never downgraded later in the evaluation.
	Interrupt bool
}

// DangerousKeyword is the reserved rule pattern that matches the fixed
// set of inherently dangerous command signatures regardless of surface
// text differences.
const DangerousKeyword = "__dangerous__"

// Rule binds a tool name to an optional scoped pattern. Rules are
// immutable once parsed.
type Rule struct {
	// Tool is the operation kind the rule applies to (e.g. "Bash").
	Tool string
	// Pattern is the optional scoped pattern; empty matches any input.
	Pattern string
	// raw preserves the original specifier for audit messages.
	raw string
}

// String returns the original rule specifier.
func (r Rule) String() string {
	if r.raw != "" {
		return r.raw
	}
	if r.Pattern == "" {
		return r.Tool
	}
	return fmt.Sprintf("%s(%s)", r.Tool, r.Pattern)
}

// ParseRule parses a rule specifier of the form "Tool" or "Tool(pattern)".
func ParseRule(spec string) (Rule, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return Rule{}, fmt.Errorf("empty rule specifier")
	}

	open := strings.IndexByte(spec, '(')
	if open < 0 {
		if strings.ContainsAny(spec, ") \t") {
			return Rule{}, fmt.Errorf("malformed rule specifier %q", spec)
		}
		return Rule{Tool: spec, raw: spec}, nil
	}

	if !strings.HasSuffix(spec, ")") {
		return Rule{}, fmt.Errorf("unterminated pattern in rule %q", spec)
	}

	tool := spec[:open]
	pattern := spec[open+1 : len(spec)-1]
	if tool == "" {
		return Rule{}, fmt.Errorf("missing tool name in rule %q", spec)
	}

	return Rule{Tool: tool, Pattern: pattern, raw: spec}, nil
}

// Policy holds the three rule buckets. It is immutable after Load.
type Policy struct {
	Allow []Rule
	Deny  []Rule
	Ask   []Rule
}

// RuleSpecs is the serializable form of a policy, as written in
// configuration files.
type RuleSpecs struct {
	Allow []string `json:"allow" yaml:"allow" mapstructure:"allow"`
	Deny  []string `json:"deny" yaml:"deny" mapstructure:"deny"`
	Ask   []string `json:"ask" yaml:"ask" mapstructure:"ask"`
}

// Load parses rule specifiers into a Policy. Any malformed specifier
// fails the whole load; a policy is all-or-nothing.
func Load(specs RuleSpecs) (*Policy, error) {
	p := &Policy{}

	for _, s := range specs.Deny {
		r, err := ParseRule(s)
		if err != nil {
			return nil, fmt.Errorf("deny rule: %w", err)
		}
		p.Deny = append(p.Deny, r)
	}
	for _, s := range specs.Allow {
		r, err := ParseRule(s)
		if err != nil {
			return nil, fmt.Errorf("allow rule: %w", err)
		}
		p.Allow = append(p.Allow, r)
	}
	for _, s := range specs.Ask {
		r, err := ParseRule(s)
		if err != nil {
			return nil, fmt.Errorf("ask rule: %w", err)
		}
		p.Ask = append(p.Ask, r)
	}

	return p, nil
}

// EvalContext carries the audit identity and trust hints for one
// evaluation.
type EvalContext struct {
	// SessionID identifies the requesting session, for audit.
	SessionID string
	// MemberID identifies the requesting member, for audit.
	MemberID string
	// Priority is the priority of the task the operation belongs to.
	Priority models.TaskPriority
	// WorkspaceDir is the caller's designated workspace scope for
	// content-mutating operations.
	WorkspaceDir string
}
