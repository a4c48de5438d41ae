// Package state provides SQLite-based persistence for squad sessions.
package state

import (
	"io"
	"time"

	"github.com/ShayCichocki/squad/pkg/models"
)

// SessionStore handles session-related persistence operations.
type SessionStore interface {
	CreateSession(s *Session) error
	GetSession(id string) (*Session, error)
	UpdateSession(s *Session) error
	GetActiveSession() (*Session, error)
}

// ResultStore handles task result persistence operations.
type ResultStore interface {
	SaveTaskResult(sessionID string, kind models.TaskKind, r *models.TaskResult) error
	ListTaskResults(sessionID string) ([]models.TaskResult, error)
}

// AuditStore handles permission audit persistence operations.
type AuditStore interface {
	SaveAuditEntry(sessionID, memberID, tool, verdict, reason string, at time.Time) error
	ListAuditEntries(sessionID string) ([]AuditRecord, error)
}

// Migrator handles database schema migrations.
type Migrator interface {
	Migrate() error
}

// Store defines the interface for state persistence. The orchestrator
// depends on this rather than the concrete SQLite implementation, so
// persistence stays optional.
type Store interface {
	io.Closer
	Migrator
	SessionStore
	ResultStore
	AuditStore
}

// Compile-time verification that DB implements all interfaces.
var (
	_ Store        = (*DB)(nil)
	_ Migrator     = (*DB)(nil)
	_ SessionStore = (*DB)(nil)
	_ ResultStore  = (*DB)(nil)
	_ AuditStore   = (*DB)(nil)
)
