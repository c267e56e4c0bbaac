package audit

import (
	"context"
	"errors"
	"time"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// Store errors shared by all adapters.
var (
	// ErrInvalidEntry is returned when an entry is missing a policy ID.
	ErrInvalidEntry = errors.New("invalid audit entry")

	// ErrStoreClosed is returned when the store has been closed.
	ErrStoreClosed = errors.New("audit store is closed")
)

// Store defines the interface for durable, queryable transition history.
// The trail is kept independent of the live policy record so history
// survives changes to the policy model. Implementations may be in-memory,
// SQLite, PostgreSQL, Badger, or any other backend.
type Store interface {
	// Record appends an entry. Existing entries are never overwritten
	// or removed.
	Record(ctx context.Context, entry policy.AuditEntry) error

	// TrailFor returns all entries for a policy in recorded order.
	TrailFor(ctx context.Context, policyID string) ([]policy.AuditEntry, error)

	// TrailByDateRange returns entries whose timestamp falls within
	// [start, end] inclusive.
	TrailByDateRange(ctx context.Context, policyID string, start, end time.Time) ([]policy.AuditEntry, error)

	// TrailByFromStatus returns entries whose FromStatus matches, or all
	// entries when from is nil.
	TrailByFromStatus(ctx context.Context, policyID string, from *policy.Status) ([]policy.AuditEntry, error)

	// Count returns the number of entries recorded for a policy.
	Count(ctx context.Context, policyID string) (int64, error)

	// History returns a display projection of the trail.
	History(ctx context.Context, policyID string) ([]HistoryRecord, error)

	// VerifyIntegrity walks the trail in stored order and reports whether
	// every entry's timestamp is non-decreasing. Empty and single-entry
	// trails are trivially valid.
	VerifyIntegrity(ctx context.Context, policyID string) (bool, error)

	// Clear removes all entries for a policy. Test helper only; production
	// code never deletes audit history.
	Clear(ctx context.Context, policyID string) error
}

// HistoryFromEntries projects entries into display records. Shared by
// store implementations.
func HistoryFromEntries(entries []policy.AuditEntry) []HistoryRecord {
	records := make([]HistoryRecord, len(entries))
	for i, e := range entries {
		records[i] = HistoryRecord{
			FromStatus:     e.FromStatus,
			ToStatus:       e.ToStatus,
			TransitionedBy: e.TransitionedBy,
			Timestamp:      e.Timestamp,
			Reason:         e.Reason,
		}
	}
	return records
}
