package state

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// SessionStatus represents the status of a session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCanceled  SessionStatus = "canceled"
)

// Session is the persisted record of an orchestration session.
type Session struct {
	ID          string        `json:"id"`
	Objective   string        `json:"objective"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	EndedAt     *time.Time    `json:"ended_at"`
	TotalCost   float64       `json:"total_cost"`
	TotalTokens int64         `json:"total_tokens"`
}

// Session CRUD operations

// CreateSession creates a new session.
func (db *DB) CreateSession(s *Session) error {
	_, err := db.Exec(`
		INSERT INTO sessions (id, objective, status, started_at, ended_at, total_cost, total_tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.ID, s.Objective, string(s.Status), formatTime(s.StartedAt), nil, s.TotalCost, s.TotalTokens)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID. Returns nil when no session exists.
func (db *DB) GetSession(id string) (*Session, error) {
	row := db.QueryRow(`
		SELECT id, objective, status, started_at, ended_at, total_cost, total_tokens
		FROM sessions WHERE id = ?
	`, id)

	var s Session
	var startedAt string
	var endedAt sql.NullString
	err := row.Scan(&s.ID, &s.Objective, &s.Status, &startedAt, &endedAt, &s.TotalCost, &s.TotalTokens)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	s.StartedAt, _ = parseTime(startedAt)
	s.EndedAt = parseNullableTime(endedAt)
	return &s, nil
}

// UpdateSession updates a session.
func (db *DB) UpdateSession(s *Session) error {
	var endedAt *string
	if s.EndedAt != nil {
		v := formatTime(*s.EndedAt)
		endedAt = &v
	}

	_, err := db.Exec(`
		UPDATE sessions SET objective = ?, status = ?, ended_at = ?, total_cost = ?, total_tokens = ?
		WHERE id = ?
	`, s.Objective, string(s.Status), endedAt, s.TotalCost, s.TotalTokens, s.ID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// DeleteSession deletes a session by ID.
func (db *DB) DeleteSession(id string) error {
	_, err := db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// ListSessions lists all sessions, optionally filtered by status.
func (db *DB) ListSessions(status *SessionStatus) ([]Session, error) {
	var rows *sql.Rows
	var err error

	if status != nil {
		rows, err = db.Query(`
			SELECT id, objective, status, started_at, ended_at, total_cost, total_tokens
			FROM sessions WHERE status = ? ORDER BY started_at DESC
		`, string(*status))
	} else {
		rows, err = db.Query(`
			SELECT id, objective, status, started_at, ended_at, total_cost, total_tokens
			FROM sessions ORDER BY started_at DESC
		`)
	}
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		var s Session
		var startedAt string
		var endedAt sql.NullString
		if err := rows.Scan(&s.ID, &s.Objective, &s.Status, &startedAt, &endedAt, &s.TotalCost, &s.TotalTokens); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		s.StartedAt, _ = parseTime(startedAt)
		s.EndedAt = parseNullableTime(endedAt)
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// GetActiveSession returns the most recent active session, if any.
func (db *DB) GetActiveSession() (*Session, error) {
	status := SessionActive
	sessions, err := db.ListSessions(&status)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

// Task result persistence

// SaveTaskResult persists a completed task result. Saving the same task
// twice replaces the earlier row.
func (db *DB) SaveTaskResult(sessionID string, kind models.TaskKind, r *models.TaskResult) error {
	_, err := db.Exec(`
		INSERT OR REPLACE INTO task_results
			(task_id, session_id, member_id, kind, status, output, error,
			 input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
			 cost, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.TaskID, sessionID, r.MemberID, string(kind), string(r.Status), r.Output, r.Error,
		r.Usage.InputTokens, r.Usage.OutputTokens, r.Usage.CacheCreationTokens, r.Usage.CacheReadTokens,
		r.Cost, r.Duration.Milliseconds(), formatTime(time.Now()))
	if err != nil {
		return fmt.Errorf("save task result: %w", err)
	}
	return nil
}

// ListTaskResults returns all task results recorded for a session.
func (db *DB) ListTaskResults(sessionID string) ([]models.TaskResult, error) {
	rows, err := db.Query(`
		SELECT task_id, member_id, status, output, error,
			input_tokens, output_tokens, cache_creation_tokens, cache_read_tokens,
			cost, duration_ms
		FROM task_results WHERE session_id = ? ORDER BY recorded_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list task results: %w", err)
	}
	defer rows.Close()

	var results []models.TaskResult
	for rows.Next() {
		var r models.TaskResult
		var output, errMsg sql.NullString
		var durationMS int64
		if err := rows.Scan(&r.TaskID, &r.MemberID, &r.Status, &output, &errMsg,
			&r.Usage.InputTokens, &r.Usage.OutputTokens, &r.Usage.CacheCreationTokens, &r.Usage.CacheReadTokens,
			&r.Cost, &durationMS); err != nil {
			return nil, fmt.Errorf("scan task result: %w", err)
		}
		if output.Valid {
			r.Output = output.String
		}
		if errMsg.Valid {
			r.Error = errMsg.String
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		results = append(results, r)
	}
	return results, nil
}

// Audit persistence

// SaveAuditEntry persists one permission decision for later inspection.
func (db *DB) SaveAuditEntry(sessionID, memberID, tool, verdict, reason string, at time.Time) error {
	_, err := db.Exec(`
		INSERT INTO audit_entries (session_id, member_id, tool, verdict, reason, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, memberID, tool, verdict, reason, formatTime(at))
	if err != nil {
		return fmt.Errorf("save audit entry: %w", err)
	}
	return nil
}

// AuditRecord is one persisted permission decision.
type AuditRecord struct {
	SessionID  string
	MemberID   string
	Tool       string
	Verdict    string
	Reason     string
	RecordedAt time.Time
}

// ListAuditEntries returns a session's audit entries in recording order.
func (db *DB) ListAuditEntries(sessionID string) ([]AuditRecord, error) {
	rows, err := db.Query(`
		SELECT session_id, member_id, tool, verdict, reason, recorded_at
		FROM audit_entries
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditRecord
	for rows.Next() {
		var e AuditRecord
		var recordedAt string
		if err := rows.Scan(&e.SessionID, &e.MemberID, &e.Tool, &e.Verdict, &e.Reason, &recordedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		if t, err := parseTime(recordedAt); err == nil {
			e.RecordedAt = t
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// CountAuditEntries returns the number of audit entries for a session.
func (db *DB) CountAuditEntries(sessionID string) (int, error) {
	var count int
	row := db.QueryRow("SELECT COUNT(*) FROM audit_entries WHERE session_id = ?", sessionID)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}
