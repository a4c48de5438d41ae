package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// readOnlyTools are inspection operations the default policy allows
// unconditionally.
var readOnlyTools = map[string]bool{
	"Read":      true,
	"Glob":      true,
	"Grep":      true,
	"ListDir":   true,
	"WebSearch": true,
	"WebFetch":  true,
}

// mutatingTools are content-mutating operations the default policy
// restricts to the caller's workspace scope.
var mutatingTools = map[string]bool{
	"Write":        true,
	"Edit":         true,
	"NotebookEdit": true,
}

// safeCommands is the fixed allow-list of side-effect-free command names
// the default policy accepts for Bash without an explicit rule.
var safeCommands = map[string]bool{
	"ls":     true,
	"pwd":    true,
	"cat":    true,
	"head":   true,
	"tail":   true,
	"wc":     true,
	"echo":   true,
	"grep":   true,
	"find":   true,
	"which":  true,
	"date":   true,
	"whoami": true,
}

// secretPathPatterns identify writes that a critical deny rule protects:
// secret and credential material.
var secretPathPatterns = []string{
	".env",
	"secret",
	"credential",
	"id_rsa",
	"id_ed25519",
	".pem",
	".aws/",
	"private_key",
	"token",
}

// Engine evaluates tool operations against a loaded policy and records
// every decision to a bounded audit ledger.
type Engine struct {
	policy *Policy
	audit  *AuditLog
}

// NewEngine creates an Engine over the given policy. A nil policy is
// treated as empty, leaving only the default policy in effect.
func NewEngine(p *Policy) *Engine {
	if p == nil {
		p = &Policy{}
	}
	return &Engine{
		policy: p,
		audit:  NewAuditLog(DefaultAuditCap),
	}
}

// Audit returns the engine's audit ledger.
func (e *Engine) Audit() *AuditLog {
	return e.audit
}

// Evaluate adjudicates one (tool, input) operation. It never panics and
// never returns an error: any internal failure produces a deny decision
// with the cause in the reason.
func (e *Engine) Evaluate(ctx context.Context, tool string, input json.RawMessage, ec EvalContext) (decision Decision) {
	defer func() {
		if r := recover(); r != nil {
			decision = Decision{
				Verdict: VerdictDeny,
				Reason:  fmt.Sprintf("policy evaluation failed: %v", r),
			}
		}
		e.audit.Append(AuditEntry{
			Time:      time.Now(),
			Tool:      tool,
			SessionID: ec.SessionID,
			MemberID:  ec.MemberID,
			Verdict:   decision.Verdict,
			Reason:    decision.Reason,
			Ask:       decision.Ask,
			Interrupt: decision.Interrupt,
		})
	}()

	decision = e.evaluate(tool, input, ec)
	return decision
}

// evaluate applies the precedence order: deny, allow, ask, defaults.
func (e *Engine) evaluate(tool string, input json.RawMessage, ec EvalContext) Decision {
	for _, r := range e.policy.Deny {
		if ruleMatches(r, tool, input) {
			return Decision{
				Verdict:   VerdictDeny,
				Reason:    fmt.Sprintf("denied by rule %s", r),
				Interrupt: isCriticalRule(r),
			}
		}
	}

	for _, r := range e.policy.Allow {
		if ruleMatches(r, tool, input) {
			return Decision{
				Verdict: VerdictAllow,
				Reason:  fmt.Sprintf("allowed by rule %s", r),
			}
		}
	}

	for _, r := range e.policy.Ask {
		if ruleMatches(r, tool, input) {
			// No interactive channel exists, so ask rules auto-allow
			// with a reason that stays distinguishable in the audit.
			return Decision{
				Verdict: VerdictAllow,
				Ask:     true,
				Reason:  fmt.Sprintf("rule %s requires confirmation; auto-approved (non-interactive)", r),
			}
		}
	}

	return e.defaultDecision(tool, input, ec)
}

// defaultDecision applies the built-in policy when no rule matched.
func (e *Engine) defaultDecision(tool string, input json.RawMessage, ec EvalContext) Decision {
	switch {
	case readOnlyTools[tool]:
		return Decision{Verdict: VerdictAllow, Reason: "read-only operation"}

	case mutatingTools[tool]:
		target := extractString(input, "file_path", "path")
		if target != "" && inWorkspace(target, ec.WorkspaceDir) {
			return Decision{Verdict: VerdictAllow, Reason: "write within workspace scope"}
		}
		return Decision{
			Verdict: VerdictDeny,
			Reason:  fmt.Sprintf("write target %q outside workspace scope", target),
		}

	case tool == "Bash":
		command := extractString(input, "command")
		if IsDangerousCommand(command) {
			return Decision{
				Verdict:   VerdictDeny,
				Interrupt: true,
				Reason:    "dangerous command signature",
			}
		}
		if name := commandName(command); safeCommands[name] {
			return Decision{Verdict: VerdictAllow, Reason: fmt.Sprintf("safe command %q", name)}
		}
		if ec.Priority.Escalated() {
			return Decision{
				Verdict: VerdictAllow,
				Reason:  fmt.Sprintf("command allowed under escalated %s priority", ec.Priority),
			}
		}
		return Decision{Verdict: VerdictDeny, Reason: "command not in safe allow-list"}

	default:
		return Decision{
			Verdict: VerdictDeny,
			Reason:  fmt.Sprintf("unrecognized operation kind %q", tool),
		}
	}
}

// commandName returns the first token of a shell command.
func commandName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// inWorkspace reports whether the target path falls within the workspace
// directory. Relative targets are treated as workspace-relative.
func inWorkspace(target, workspace string) bool {
	if workspace == "" {
		return false
	}
	if !filepath.IsAbs(target) {
		return !strings.HasPrefix(filepath.Clean(target), "..")
	}
	rel, err := filepath.Rel(workspace, target)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}

// isCriticalRule reports whether a matched deny rule protects against
// destructive wipes, privilege escalation, or secret/credential writes.
// Matches on such rules interrupt the enclosing task.
func isCriticalRule(r Rule) bool {
	if r.Pattern == DangerousKeyword {
		return true
	}
	p := strings.ToLower(r.Pattern)
	if strings.Contains(p, "rm -rf") || strings.Contains(p, "sudo") ||
		strings.Contains(p, "mkfs") || strings.Contains(p, "dd ") {
		return true
	}
	for _, s := range secretPathPatterns {
		if strings.Contains(p, s) {
			return true
		}
	}
	return false
}
