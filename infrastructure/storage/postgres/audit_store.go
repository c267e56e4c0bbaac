package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// AuditStore is a PostgreSQL-backed implementation of audit.Store.
type AuditStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewAuditStore creates a new PostgreSQL audit store.
func NewAuditStore(pool *pgxpool.Pool, schema string) *AuditStore {
	if schema == "" {
		schema = "public"
	}
	return &AuditStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *AuditStore) tableName() string {
	return fmt.Sprintf("%s.audit_entries", s.schema)
}

// Record appends an entry to the policy's trail.
func (s *AuditStore) Record(ctx context.Context, entry policy.AuditEntry) error {
	if entry.PolicyID == "" {
		return audit.ErrInvalidEntry
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	var metadata []byte
	if len(entry.Metadata) > 0 {
		data, err := json.Marshal(entry.Metadata)
		if err != nil {
			return err
		}
		metadata = data
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.tableName())

	_, err := s.pool.Exec(ctx, query,
		entry.ID,
		entry.PolicyID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		string(entry.Action),
		entry.TransitionedBy,
		entry.Reason,
		entry.Timestamp,
		metadata,
	)
	if err != nil {
		return s.wrapError(err)
	}

	return nil
}

// TrailFor returns all entries for a policy in recorded order.
func (s *AuditStore) TrailFor(ctx context.Context, policyID string) ([]policy.AuditEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata
		FROM %s WHERE policy_id = $1 ORDER BY seq
	`, s.tableName())

	return s.query(ctx, query, policyID)
}

// TrailByDateRange returns entries whose timestamp falls within [start, end].
func (s *AuditStore) TrailByDateRange(ctx context.Context, policyID string, start, end time.Time) ([]policy.AuditEntry, error) {
	query := fmt.Sprintf(`
		SELECT id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata
		FROM %s WHERE policy_id = $1 AND timestamp >= $2 AND timestamp <= $3 ORDER BY seq
	`, s.tableName())

	return s.query(ctx, query, policyID, start, end)
}

// TrailByFromStatus returns entries whose FromStatus matches, or all
// entries when from is nil.
func (s *AuditStore) TrailByFromStatus(ctx context.Context, policyID string, from *policy.Status) ([]policy.AuditEntry, error) {
	if from == nil {
		return s.TrailFor(ctx, policyID)
	}

	query := fmt.Sprintf(`
		SELECT id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata
		FROM %s WHERE policy_id = $1 AND from_status = $2 ORDER BY seq
	`, s.tableName())

	return s.query(ctx, query, policyID, string(*from))
}

// Count returns the number of entries recorded for a policy.
func (s *AuditStore) Count(ctx context.Context, policyID string) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE policy_id = $1`, s.tableName())

	var count int64
	if err := s.pool.QueryRow(ctx, query, policyID).Scan(&count); err != nil {
		return 0, s.wrapError(err)
	}

	return count, nil
}

// History returns a display projection of the trail.
func (s *AuditStore) History(ctx context.Context, policyID string) ([]audit.HistoryRecord, error) {
	entries, err := s.TrailFor(ctx, policyID)
	if err != nil {
		return nil, err
	}

	return audit.HistoryFromEntries(entries), nil
}

// VerifyIntegrity reports whether the stored trail's timestamps are
// non-decreasing in recorded order.
func (s *AuditStore) VerifyIntegrity(ctx context.Context, policyID string) (bool, error) {
	entries, err := s.TrailFor(ctx, policyID)
	if err != nil {
		return false, err
	}

	return audit.VerifyEntryOrder(entries), nil
}

// Clear removes all entries for a policy. Test helper only.
func (s *AuditStore) Clear(ctx context.Context, policyID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE policy_id = $1`, s.tableName())

	if _, err := s.pool.Exec(ctx, query, policyID); err != nil {
		return s.wrapError(err)
	}

	return nil
}

// query runs a SELECT returning full entry rows and scans them.
func (s *AuditStore) query(ctx context.Context, query string, args ...any) ([]policy.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var entries []policy.AuditEntry
	for rows.Next() {
		entry, err := scanAuditRow(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return entries, nil
}

// scanAuditRow scans a single audit entry row.
func scanAuditRow(rows pgx.Rows) (policy.AuditEntry, error) {
	var (
		entry      policy.AuditEntry
		fromStatus string
		toStatus   string
		action     string
		metadata   []byte
	)

	if err := rows.Scan(
		&entry.ID,
		&entry.PolicyID,
		&fromStatus,
		&toStatus,
		&action,
		&entry.TransitionedBy,
		&entry.Reason,
		&entry.Timestamp,
		&metadata,
	); err != nil {
		return policy.AuditEntry{}, err
	}

	entry.FromStatus = policy.Status(fromStatus)
	entry.ToStatus = policy.Status(toStatus)
	entry.Action = policy.Action(action)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return policy.AuditEntry{}, err
		}
	}

	return entry, nil
}

// wrapError wraps database errors with storage errors.
func (s *AuditStore) wrapError(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(ErrConnectionFailed, err)
}

// Ensure AuditStore implements audit.Store
var _ audit.Store = (*AuditStore)(nil)
