package state

import (
	"fmt"
	"log"
	"time"
)

// InterruptedSession describes a session left active by a previous run.
type InterruptedSession struct {
	SessionID string
	Objective string
	StartedAt time.Time
	Status    string
}

// RecoveryManager detects and cleans up sessions interrupted by a crash
// or kill. Sessions do not survive process restart, so any session still
// marked active on startup is stale.
type RecoveryManager struct {
	db *DB
}

// NewRecoveryManager creates a RecoveryManager over the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db}
}

// CheckForInterrupted returns the first session still marked active, or
// nil when no cleanup is needed.
func (rm *RecoveryManager) CheckForInterrupted() (*InterruptedSession, error) {
	sessions, err := rm.db.ListSessions(nil)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	for _, s := range sessions {
		if s.Status != SessionActive {
			continue
		}
		return &InterruptedSession{
			SessionID: s.ID,
			Objective: s.Objective,
			StartedAt: s.StartedAt,
			Status:    string(s.Status),
		}, nil
	}

	return nil, nil
}

// Clean marks an interrupted session as failed and stamps its end time.
func (rm *RecoveryManager) Clean(sessionID string) error {
	session, err := rm.db.GetSession(sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return fmt.Errorf("session %s not found", sessionID)
	}

	now := time.Now()
	session.Status = SessionFailed
	session.EndedAt = &now
	if err := rm.db.UpdateSession(session); err != nil {
		return fmt.Errorf("mark session failed: %w", err)
	}

	log.Printf("[state] session %s cleaned up and marked as failed", sessionID)
	return nil
}

// CleanAll marks every stale active session as failed. Returns the
// number of sessions cleaned.
func (rm *RecoveryManager) CleanAll() (int, error) {
	cleaned := 0
	for {
		interrupted, err := rm.CheckForInterrupted()
		if err != nil {
			return cleaned, err
		}
		if interrupted == nil {
			return cleaned, nil
		}
		if err := rm.Clean(interrupted.SessionID); err != nil {
			return cleaned, err
		}
		cleaned++
	}
}
