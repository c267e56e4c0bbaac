package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// Trail is an append-only sequence of audit entries for a single policy.
// Entries are never mutated or removed once appended.
type Trail struct {
	policyID string
	entries  []policy.AuditEntry
	mu       sync.RWMutex
}

// NewTrail creates an empty trail for the given policy.
func NewTrail(policyID string) *Trail {
	return &Trail{
		policyID: policyID,
		entries:  make([]policy.AuditEntry, 0),
	}
}

// Append adds an entry to the trail, stamping the policy ID and filling a
// missing ID or timestamp.
func (t *Trail) Append(entry policy.AuditEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry.PolicyID = t.policyID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	t.entries = append(t.entries, entry)
}

// Entries returns a copy of all entries in recorded order.
func (t *Trail) Entries() []policy.AuditEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	entries := make([]policy.AuditEntry, len(t.entries))
	copy(entries, t.entries)
	return entries
}

// LastEntry returns the most recent entry, or nil if the trail is empty.
func (t *Trail) LastEntry() *policy.AuditEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return nil
	}
	entry := t.entries[len(t.entries)-1]
	return &entry
}

// Count returns the number of entries.
func (t *Trail) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// PolicyID returns the associated policy ID.
func (t *Trail) PolicyID() string {
	return t.policyID
}

// VerifyIntegrity walks the trail in recorded order and reports whether
// every entry's timestamp is non-decreasing relative to its predecessor.
// An empty or single-entry trail is trivially valid.
func (t *Trail) VerifyIntegrity() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return VerifyEntryOrder(t.entries)
}

// VerifyEntryOrder reports whether the given entries are non-decreasing in
// timestamp. It is the shared integrity check used by stores.
func VerifyEntryOrder(entries []policy.AuditEntry) bool {
	for i := 1; i < len(entries); i++ {
		if entries[i].Timestamp.Before(entries[i-1].Timestamp) {
			return false
		}
	}
	return true
}
