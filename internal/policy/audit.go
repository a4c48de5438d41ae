package policy

import (
	"sync"
	"time"
)

// DefaultAuditCap is the default bound on retained audit entries.
const DefaultAuditCap = 1000

// AuditEntry records one permission evaluation.
type AuditEntry struct {
	Time      time.Time `json:"time"`
	Tool      string    `json:"tool"`
	SessionID string    `json:"session_id,omitempty"`
	MemberID  string    `json:"member_id,omitempty"`
	Verdict   Verdict   `json:"verdict"`
	Reason    string    `json:"reason"`
	Ask       bool      `json:"ask,omitempty"`
	Interrupt bool      `json:"interrupt,omitempty"`
}

// AuditLog is an append-only, bounded ledger of permission decisions.
// When the cap is exceeded the oldest half is evicted, keeping memory
// bounded for long-running sessions.
type AuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
	cap     int
}

// NewAuditLog creates an AuditLog holding at most cap entries.
func NewAuditLog(cap int) *AuditLog {
	if cap < 2 {
		cap = DefaultAuditCap
	}
	return &AuditLog{cap: cap}
}

// Append records an entry, evicting the oldest half if the cap is
// exceeded.
func (l *AuditLog) Append(e AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, e)
	if len(l.entries) > l.cap {
		keep := len(l.entries) / 2
		l.entries = append([]AuditEntry(nil), l.entries[len(l.entries)-keep:]...)
	}
}

// Entries returns a snapshot copy of the ledger, oldest first.
func (l *AuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]AuditEntry(nil), l.entries...)
}

// Len returns the current number of retained entries.
func (l *AuditLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}
