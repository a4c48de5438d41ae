package models

import "testing"

func TestTaskKind_Valid(t *testing.T) {
	tests := []struct {
		name string
		kind TaskKind
		want bool
	}{
		{"analysis is valid", TaskAnalysis, true},
		{"implementation is valid", TaskImplementation, true},
		{"review is valid", TaskReview, true},
		{"testing is valid", TaskTesting, true},
		{"deployment is valid", TaskDeployment, true},
		{"debugging is valid", TaskDebugging, true},
		{"empty string is invalid", TaskKind(""), false},
		{"unknown kind is invalid", TaskKind("research"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.Valid(); got != tt.want {
				t.Errorf("TaskKind(%q).Valid() = %v, want %v", tt.kind, got, tt.want)
			}
		})
	}
}

func TestTaskPriority_Escalated(t *testing.T) {
	tests := []struct {
		name     string
		priority TaskPriority
		want     bool
	}{
		{"low is not escalated", PriorityLow, false},
		{"medium is not escalated", PriorityMedium, false},
		{"high is escalated", PriorityHigh, true},
		{"critical is escalated", PriorityCritical, true},
		{"unknown is not escalated", TaskPriority("urgent"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.priority.Escalated(); got != tt.want {
				t.Errorf("TaskPriority(%q).Escalated() = %v, want %v", tt.priority, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"in_progress is valid", TaskInProgress, true},
		{"completed is valid", TaskCompleted, true},
		{"failed is valid", TaskFailed, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"done is invalid", TaskStatus("done"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestUsage_Add(t *testing.T) {
	u := Usage{InputTokens: 100, OutputTokens: 50}
	u.Add(Usage{InputTokens: 25, OutputTokens: 10, CacheCreationTokens: 5, CacheReadTokens: 200})

	if u.InputTokens != 125 {
		t.Errorf("InputTokens = %d, want 125", u.InputTokens)
	}
	if u.OutputTokens != 60 {
		t.Errorf("OutputTokens = %d, want 60", u.OutputTokens)
	}
	if u.CacheCreationTokens != 5 {
		t.Errorf("CacheCreationTokens = %d, want 5", u.CacheCreationTokens)
	}
	if u.CacheReadTokens != 200 {
		t.Errorf("CacheReadTokens = %d, want 200", u.CacheReadTokens)
	}
	if u.Total() != 390 {
		t.Errorf("Total() = %d, want 390", u.Total())
	}
}
