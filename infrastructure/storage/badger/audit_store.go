package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// AuditStore is a BadgerDB-backed implementation of audit.Store.
// Entries are keyed by policy ID plus a per-policy sequence number so
// prefix iteration yields the trail in recorded order.
type AuditStore struct {
	db        *badger.DB
	keyPrefix string
}

// NewAuditStore creates a new BadgerDB audit store with the given configuration.
func NewAuditStore(cfg Config, opts ...Option) (*AuditStore, error) {
	// Apply options
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := openDB(cfg)
	if err != nil {
		return nil, err
	}

	return &AuditStore{
		db:        db,
		keyPrefix: cfg.KeyPrefix,
	}, nil
}

// NewAuditStoreFromDB creates an audit store from an existing BadgerDB database.
func NewAuditStoreFromDB(db *badger.DB, keyPrefix string) *AuditStore {
	return &AuditStore{
		db:        db,
		keyPrefix: keyPrefix,
	}
}

// Key format: prefix:trail:policyID:sequence (8 bytes, big-endian)
func (s *AuditStore) entryKey(policyID string, seq uint64) []byte {
	seqBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(seqBytes, seq)
	return append([]byte(s.keyPrefix+"trail:"+policyID+":"), seqBytes...)
}

// Key format: prefix:seq:policyID for storing the sequence counter
func (s *AuditStore) seqKey(policyID string) []byte {
	return []byte(s.keyPrefix + "seq:" + policyID)
}

func (s *AuditStore) trailPrefix(policyID string) []byte {
	return []byte(s.keyPrefix + "trail:" + policyID + ":")
}

// Record appends an entry to the policy's trail.
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

	return s.db.Update(func(txn *badger.Txn) error {
		// Get current sequence number
		var seq uint64
		seqKey := s.seqKey(entry.PolicyID)

		item, err := txn.Get(seqKey)
		if err == nil {
			err = item.Value(func(val []byte) error {
				if len(val) == 8 {
					seq = binary.BigEndian.Uint64(val)
				}
				return nil
			})
			if err != nil {
				return err
			}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		seq++

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		if err := txn.Set(s.entryKey(entry.PolicyID, seq), data); err != nil {
			return err
		}

		seqBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(seqBytes, seq)
		return txn.Set(seqKey, seqBytes)
	})
}

// TrailFor returns all entries for a policy in recorded order.
func (s *AuditStore) TrailFor(ctx context.Context, policyID string) ([]policy.AuditEntry, error) {
	return s.scan(ctx, policyID, func(policy.AuditEntry) bool { return true })
}

// TrailByDateRange returns entries whose timestamp falls within [start, end].
func (s *AuditStore) TrailByDateRange(ctx context.Context, policyID string, start, end time.Time) ([]policy.AuditEntry, error) {
	return s.scan(ctx, policyID, func(e policy.AuditEntry) bool {
		return !e.Timestamp.Before(start) && !e.Timestamp.After(end)
	})
}

// TrailByFromStatus returns entries whose FromStatus matches, or all
// entries when from is nil.
func (s *AuditStore) TrailByFromStatus(ctx context.Context, policyID string, from *policy.Status) ([]policy.AuditEntry, error) {
	if from == nil {
		return s.TrailFor(ctx, policyID)
	}

	return s.scan(ctx, policyID, func(e policy.AuditEntry) bool {
		return e.FromStatus == *from
	})
}

// Count returns the number of entries recorded for a policy.
func (s *AuditStore) Count(ctx context.Context, policyID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var count int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.trailPrefix(policyID)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}

		return nil
	})

	return count, err
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

	return s.db.Update(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.trailPrefix(policyID)
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for _, key := range keys {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}

		return txn.Delete(s.seqKey(policyID))
	})
}

// Close closes the underlying database.
func (s *AuditStore) Close() error {
	return s.db.Close()
}

// scan iterates the policy's trail in sequence order, keeping entries
// the filter accepts.
func (s *AuditStore) scan(ctx context.Context, policyID string, keep func(policy.AuditEntry) bool) ([]policy.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var entries []policy.AuditEntry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.trailPrefix(policyID)

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()

			var e policy.AuditEntry
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			})
			if err != nil {
				continue // Skip malformed entries
			}

			if keep(e) {
				entries = append(entries, e)
			}
		}

		return nil
	})

	return entries, err
}

// Ensure AuditStore implements audit.Store
var _ audit.Store = (*AuditStore)(nil)
