package team

import "github.com/ShayCichocki/squad/pkg/models"

// readTools are the inspection tools every member receives.
var readTools = []string{"Read", "Glob", "Grep", "ListDir"}

// editTools extend readTools with content mutation.
var editTools = append(append([]string(nil), readTools...), "Write", "Edit")

// fullTools extend editTools with command execution.
var fullTools = append(append([]string(nil), editTools...), "Bash")

// DefaultMembers returns the built-in team roster. The generalist comes
// last so specialized members win selection when they match.
func DefaultMembers() []*models.Member {
	return []*models.Member{
		{
			ID:              "analyst",
			Name:            "Analyst",
			Role:            "Code Analyst",
			Specializations: []string{"analysis"},
			AllowedTools:    append(append([]string(nil), readTools...), "WebSearch", "WebFetch"),
			Directive: "You are a code analyst. Study the codebase, trace data flows, and report " +
				"findings precisely. Cite files and line references. Do not modify anything.",
		},
		{
			ID:              "implementer",
			Name:            "Implementer",
			Role:            "Software Engineer",
			Specializations: []string{"implementation"},
			AllowedTools:    fullTools,
			Directive: "You are a software engineer. Implement the requested change with minimal, " +
				"focused edits that match the surrounding code style. Verify your work compiles.",
		},
		{
			ID:              "reviewer",
			Name:            "Reviewer",
			Role:            "Code Reviewer",
			Specializations: []string{"review"},
			AllowedTools:    readTools,
			Directive: "You are a code reviewer. Examine the changes for correctness, clarity, and " +
				"edge cases. Report concrete findings ordered by severity; do not modify code.",
		},
		{
			ID:              "tester",
			Name:            "Tester",
			Role:            "Test Engineer",
			Specializations: []string{"testing"},
			AllowedTools:    fullTools,
			Directive: "You are a test engineer. Write and run tests for the described behavior, " +
				"covering happy paths and edge cases. Report failures with reproduction steps.",
		},
		{
			ID:              "deployer",
			Name:            "Deployer",
			Role:            "Release Engineer",
			Specializations: []string{"deployment"},
			AllowedTools:    fullTools,
			Directive: "You are a release engineer. Prepare and verify deployment steps. Never " +
				"skip verification and never touch credentials directly.",
		},
		{
			ID:              "debugger",
			Name:            "Debugger",
			Role:            "Debugging Specialist",
			Specializations: []string{"debugging"},
			AllowedTools:    fullTools,
			Directive: "You are a debugging specialist. Reproduce the defect, isolate the root " +
				"cause, and propose the smallest safe fix. Show your reasoning chain.",
		},
		{
			ID:              GeneralistID,
			Name:            "Generalist",
			Role:            "Generalist Engineer",
			Specializations: []string{},
			AllowedTools:    fullTools,
			Directive: "You are a generalist engineer. Handle whatever task you are given " +
				"pragmatically, asking the minimum of the codebase needed to do it well.",
		},
	}
}
