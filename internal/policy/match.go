package policy

import (
	"encoding/json"
	"regexp"
	"strings"
)

// dangerousSignatures match inherently destructive command shapes:
// recursive root deletion, remote scripts piped into a shell, forkbombs,
// raw block-device writes, and privilege-escalated deletion.
var dangerousSignatures = []*regexp.Regexp{
	regexp.MustCompile(`rm\s+(-[a-zA-Z]*r[a-zA-Z]*f|-[a-zA-Z]*f[a-zA-Z]*r)\s+/(\s|$)`),
	regexp.MustCompile(`(curl|wget)[^|]*\|\s*(ba|z|da)?sh`),
	regexp.MustCompile(`:\(\)\s*\{\s*:\|:&\s*\}\s*;\s*:`),
	regexp.MustCompile(`dd\s+[^;|&]*of=/dev/(sd|hd|nvme|vd)`),
	regexp.MustCompile(`sudo\s+rm\s`),
	regexp.MustCompile(`mkfs(\.[a-z0-9]+)?\s+/dev/`),
}

// IsDangerousCommand reports whether the command matches one of the
// fixed dangerous signatures.
func IsDangerousCommand(command string) bool {
	for _, sig := range dangerousSignatures {
		if sig.MatchString(command) {
			return true
		}
	}
	return false
}

// matchCommand evaluates a command-style rule pattern.
// "prefix:*" matches any command starting with the literal prefix,
// the reserved dangerous keyword matches the fixed signature set, and
// anything else requires exact full-string equality.
func matchCommand(pattern, command string) bool {
	if pattern == "" {
		return true
	}
	if pattern == DangerousKeyword {
		return IsDangerousCommand(command)
	}
	if prefix, ok := strings.CutSuffix(pattern, ":*"); ok {
		return strings.HasPrefix(command, prefix)
	}
	return command == pattern
}

// matchPath evaluates a glob-style rule pattern anchored to the entire
// path. '*' matches any run of characters, '?' matches one character,
// and '.' is literal.
func matchPath(pattern, path string) bool {
	if pattern == "" {
		return true
	}
	re, err := compileGlob(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

// compileGlob translates a glob pattern into an anchored regexp.
func compileGlob(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

// matchURL evaluates a URL-style rule pattern. Wildcard patterns are
// compiled to a regexp; plain patterns match by substring containment.
func matchURL(pattern, url string) bool {
	if pattern == "" {
		return true
	}
	if strings.Contains(pattern, "*") {
		re, err := compileWildcard(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(url)
	}
	return strings.Contains(url, pattern)
}

// compileWildcard translates a wildcard pattern into an unanchored regexp.
func compileWildcard(pattern string) (*regexp.Regexp, error) {
	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile(strings.Join(parts, ".*"))
}

// matchGeneric evaluates a rule pattern against the JSON-serialized
// operation input: substring containment, or wildcard regexp when the
// pattern contains a wildcard.
func matchGeneric(pattern string, input json.RawMessage) bool {
	if pattern == "" {
		return true
	}
	serialized := string(input)
	if strings.Contains(pattern, "*") {
		re, err := compileWildcard(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(serialized)
	}
	return strings.Contains(serialized, pattern)
}

// toolInputKind classifies how a tool's input should be matched.
type toolInputKind int

const (
	inputGeneric toolInputKind = iota
	inputCommand
	inputPath
	inputURL
)

// inputKindFor returns the matching semantics for a tool name.
func inputKindFor(tool string) toolInputKind {
	switch tool {
	case "Bash":
		return inputCommand
	case "Read", "Write", "Edit", "Glob", "ListDir", "NotebookEdit":
		return inputPath
	case "WebFetch", "WebSearch":
		return inputURL
	default:
		return inputGeneric
	}
}

// extractString pulls a named string field out of a JSON tool input.
// Returns "" when the field is absent or the input is not an object.
func extractString(input json.RawMessage, fields ...string) string {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(input, &m); err != nil {
		return ""
	}
	for _, f := range fields {
		raw, ok := m[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return ""
}

// ruleMatches reports whether the rule matches the given tool operation.
func ruleMatches(r Rule, tool string, input json.RawMessage) bool {
	if r.Tool != tool && r.Tool != "*" {
		return false
	}
	switch inputKindFor(tool) {
	case inputCommand:
		return matchCommand(r.Pattern, extractString(input, "command"))
	case inputPath:
		return matchPath(r.Pattern, extractString(input, "file_path", "path", "pattern"))
	case inputURL:
		return matchURL(r.Pattern, extractString(input, "url", "query"))
	default:
		return matchGeneric(r.Pattern, input)
	}
}
