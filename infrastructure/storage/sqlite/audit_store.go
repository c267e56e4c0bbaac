package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// AuditStore is a SQLite-backed implementation of audit.Store.
type AuditStore struct {
	db *sql.DB
}

// NewAuditStore creates a new SQLite audit store with the given configuration.
func NewAuditStore(cfg Config, opts ...Option) (*AuditStore, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	s := &AuditStore{db: db}

	// Auto-migrate if enabled
	if cfg.AutoMigrate {
		if err := s.migrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return s, nil
}

// NewAuditStoreFromDB creates an audit store from an existing database connection.
func NewAuditStoreFromDB(db *sql.DB) (*AuditStore, error) {
	s := &AuditStore{db: db}

	if err := s.migrate(); err != nil {
		return nil, err
	}

	return s, nil
}

// migrate creates the audit_entries table if it doesn't exist.
func (s *AuditStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS audit_entries (
			id TEXT PRIMARY KEY,
			policy_id TEXT NOT NULL,
			from_status TEXT NOT NULL,
			to_status TEXT NOT NULL,
			action TEXT NOT NULL,
			transitioned_by TEXT NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			timestamp INTEGER NOT NULL,
			metadata BLOB,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_audit_policy_id ON audit_entries(policy_id);
		CREATE INDEX IF NOT EXISTS idx_audit_policy_timestamp ON audit_entries(policy_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return errors.Join(ErrMigrationFailed, err)
	}

	return nil
}

// Record appends an entry to the policy's trail. The entry's ID and
// timestamp are assigned when unset. Entries are never updated in place.
func (s *AuditStore) Record(ctx context.Context, entry policy.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

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

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_entries (id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.PolicyID,
		string(entry.FromStatus),
		string(entry.ToStatus),
		string(entry.Action),
		entry.TransitionedBy,
		entry.Reason,
		entry.Timestamp.UnixNano(),
		metadata,
		time.Now().Unix(),
	)

	return err
}

// TrailFor returns all entries for a policy in recorded order.
func (s *AuditStore) TrailFor(ctx context.Context, policyID string) ([]policy.AuditEntry, error) {
	return s.query(ctx,
		"SELECT id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata FROM audit_entries WHERE policy_id = ? ORDER BY rowid",
		policyID,
	)
}

// TrailByDateRange returns entries whose timestamp falls within [start, end].
func (s *AuditStore) TrailByDateRange(ctx context.Context, policyID string, start, end time.Time) ([]policy.AuditEntry, error) {
	return s.query(ctx,
		"SELECT id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata FROM audit_entries WHERE policy_id = ? AND timestamp >= ? AND timestamp <= ? ORDER BY rowid",
		policyID, start.UnixNano(), end.UnixNano(),
	)
}

// TrailByFromStatus returns entries whose FromStatus matches, or all
// entries when from is nil.
func (s *AuditStore) TrailByFromStatus(ctx context.Context, policyID string, from *policy.Status) ([]policy.AuditEntry, error) {
	if from == nil {
		return s.TrailFor(ctx, policyID)
	}

	return s.query(ctx,
		"SELECT id, policy_id, from_status, to_status, action, transitioned_by, reason, timestamp, metadata FROM audit_entries WHERE policy_id = ? AND from_status = ? ORDER BY rowid",
		policyID, string(*from),
	)
}

// Count returns the number of entries recorded for a policy.
func (s *AuditStore) Count(ctx context.Context, policyID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_entries WHERE policy_id = ?",
		policyID,
	).Scan(&count)
	if err != nil {
		return 0, err
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
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_entries WHERE policy_id = ?",
		policyID,
	)

	return err
}

// Close closes the underlying database connection.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// query runs a SELECT returning full entry rows and scans them.
func (s *AuditStore) query(ctx context.Context, q string, args ...any) ([]policy.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var entries []policy.AuditEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// scanEntry scans a single audit entry row.
func scanEntry(rows *sql.Rows) (policy.AuditEntry, error) {
	var (
		entry      policy.AuditEntry
		fromStatus string
		toStatus   string
		action     string
		tsNanos    int64
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
		&tsNanos,
		&metadata,
	); err != nil {
		return policy.AuditEntry{}, err
	}

	entry.FromStatus = policy.Status(fromStatus)
	entry.ToStatus = policy.Status(toStatus)
	entry.Action = policy.Action(action)
	entry.Timestamp = time.Unix(0, tsNanos).UTC()

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return policy.AuditEntry{}, err
		}
	}

	return entry, nil
}
