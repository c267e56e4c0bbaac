package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// AuditStore is an in-memory implementation of audit.Store. Entries are
// kept per policy in recorded order and never mutated.
type AuditStore struct {
	entries map[string][]policy.AuditEntry
	mu      sync.RWMutex
}

// NewAuditStore creates a new in-memory audit store.
func NewAuditStore() *AuditStore {
	return &AuditStore{
		entries: make(map[string][]policy.AuditEntry),
	}
}

// Record appends an entry.
func (s *AuditStore) Record(ctx context.Context, entry policy.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if entry.PolicyID == "" {
		return audit.ErrInvalidEntry
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.entries[entry.PolicyID] = append(s.entries[entry.PolicyID], entry)
	return nil
}

// TrailFor returns all entries for a policy in recorded order.
func (s *AuditStore) TrailFor(ctx context.Context, policyID string) ([]policy.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[policyID]
	out := make([]policy.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// TrailByDateRange returns entries whose timestamp falls within
// [start, end] inclusive.
func (s *AuditStore) TrailByDateRange(ctx context.Context, policyID string, start, end time.Time) ([]policy.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []policy.AuditEntry
	for _, e := range s.entries[policyID] {
		if e.Timestamp.Before(start) || e.Timestamp.After(end) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// TrailByFromStatus returns entries whose FromStatus matches, or all
// entries when from is nil.
func (s *AuditStore) TrailByFromStatus(ctx context.Context, policyID string, from *policy.Status) ([]policy.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if from == nil {
		entries := s.entries[policyID]
		out := make([]policy.AuditEntry, len(entries))
		copy(out, entries)
		return out, nil
	}

	var out []policy.AuditEntry
	for _, e := range s.entries[policyID] {
		if e.FromStatus == *from {
			out = append(out, e)
		}
	}
	return out, nil
}

// Count returns the number of entries recorded for a policy.
func (s *AuditStore) Count(ctx context.Context, policyID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.entries[policyID])), nil
}

// History returns a display projection of the trail.
func (s *AuditStore) History(ctx context.Context, policyID string) ([]audit.HistoryRecord, error) {
	entries, err := s.TrailFor(ctx, policyID)
	if err != nil {
		return nil, err
	}
	return audit.HistoryFromEntries(entries), nil
}

// VerifyIntegrity reports whether the stored trail is non-decreasing in
// timestamp.
func (s *AuditStore) VerifyIntegrity(ctx context.Context, policyID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return audit.VerifyEntryOrder(s.entries[policyID]), nil
}

// Clear removes all entries for a policy. Test helper only.
func (s *AuditStore) Clear(ctx context.Context, policyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, policyID)
	return nil
}

var _ audit.Store = (*AuditStore)(nil)
