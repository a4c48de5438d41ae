package models

import "testing"

func TestMember_CanUse(t *testing.T) {
	m := &Member{
		ID:           "tester",
		AllowedTools: []string{"Read", "Bash", "Grep"},
	}

	tests := []struct {
		tool string
		want bool
	}{
		{"Read", true},
		{"Bash", true},
		{"Grep", true},
		{"Write", false},
		{"read", false}, // case-sensitive
		{"", false},
	}

	for _, tt := range tests {
		if got := m.CanUse(tt.tool); got != tt.want {
			t.Errorf("CanUse(%q) = %v, want %v", tt.tool, got, tt.want)
		}
	}
}

func TestMember_SpecializesIn(t *testing.T) {
	m := &Member{
		ID:              "reviewer",
		Role:            "Code Reviewer",
		Specializations: []string{"review", "analysis"},
	}

	if !m.SpecializesIn(TaskReview) {
		t.Error("SpecializesIn(review) = false, want true")
	}
	if !m.SpecializesIn(TaskAnalysis) {
		t.Error("SpecializesIn(analysis) = false, want true")
	}
	if m.SpecializesIn(TaskDeployment) {
		t.Error("SpecializesIn(deployment) = true, want false")
	}
}
