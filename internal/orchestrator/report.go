package orchestrator

import (
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// SessionReport is the final accounting for an ended session. It is
// written as JSON under .squad/reports/<session-id>.json.
type SessionReport struct {
	SessionID  string              `json:"session_id"`
	Objective  string              `json:"objective"`
	StartedAt  time.Time           `json:"started_at"`
	EndedAt    time.Time           `json:"ended_at"`
	Duration   time.Duration       `json:"duration_ns"`
	TaskCount  int                 `json:"task_count"`
	Completed  int                 `json:"completed"`
	Failed     int                 `json:"failed"`
	TotalCost  float64             `json:"total_cost"`
	TotalUsage models.Usage        `json:"total_usage"`
	ByMember   map[string]int      `json:"tasks_by_member"`
	Results    []models.TaskResult `json:"results"`
}

// buildReport snapshots a session into its final report.
func buildReport(s *session) *SessionReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	report := &SessionReport{
		SessionID:  s.id,
		Objective:  s.objective,
		StartedAt:  s.startedAt,
		EndedAt:    now,
		Duration:   now.Sub(s.startedAt),
		TaskCount:  len(s.results),
		TotalCost:  s.costs.TotalCost(),
		TotalUsage: s.costs.TotalUsage(),
		ByMember:   make(map[string]int),
		Results:    append([]models.TaskResult(nil), s.results...),
	}

	for _, r := range s.results {
		if r.MemberID != "" {
			report.ByMember[r.MemberID]++
		}
		switch r.Status {
		case models.TaskCompleted:
			report.Completed++
		case models.TaskFailed:
			report.Failed++
		}
	}
	return report
}
