package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/storage/sqlite"
)

func TestNewAuditStore(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := sqlite.Config{
		DSN:         "file:" + tmpDir + "/test.db?mode=rwc",
		AutoMigrate: true,
	}

	store, err := sqlite.NewAuditStore(cfg)
	if err != nil {
		t.Fatalf("NewAuditStore failed: %v", err)
	}
	defer store.Close()

	if store == nil {
		t.Fatal("expected store, got nil")
	}
}

func TestAuditStore_RecordAndTrail(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	entries := []policy.AuditEntry{
		{
			PolicyID:       "pol-1",
			FromStatus:     policy.StatusDraft,
			ToStatus:       policy.StatusPending,
			Action:         policy.ActionSubmitForApproval,
			TransitionedBy: "user-1",
			Timestamp:      time.Now(),
		},
		{
			PolicyID:       "pol-1",
			FromStatus:     policy.StatusPending,
			ToStatus:       policy.StatusActive,
			Action:         policy.ActionApprove,
			TransitionedBy: "approver-1",
			Timestamp:      time.Now(),
		},
	}

	for _, e := range entries {
		if err := store.Record(ctx, e); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	trail, err := store.TrailFor(ctx, "pol-1")
	if err != nil {
		t.Fatalf("TrailFor failed: %v", err)
	}

	if len(trail) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(trail))
	}

	// Entries come back in recorded order
	if trail[0].ToStatus != policy.StatusPending {
		t.Errorf("expected first entry to PENDING, got %s", trail[0].ToStatus)
	}
	if trail[1].FromStatus != policy.StatusPending {
		t.Errorf("expected second entry from PENDING, got %s", trail[1].FromStatus)
	}

	// Verify IDs are assigned
	if trail[0].ID == "" {
		t.Error("expected ID to be assigned")
	}
}

func TestAuditStore_RecordMetadata(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	err := store.Record(ctx, policy.AuditEntry{
		PolicyID:       "pol-1",
		FromStatus:     policy.StatusActive,
		ToStatus:       policy.StatusCancelled,
		Action:         policy.ActionCancel,
		TransitionedBy: "customer-1",
		Reason:         "found better coverage",
		Timestamp:      time.Now(),
		Metadata:       map[string]string{"channel": "web"},
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	trail, err := store.TrailFor(ctx, "pol-1")
	if err != nil {
		t.Fatalf("TrailFor failed: %v", err)
	}

	if len(trail) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(trail))
	}
	if trail[0].Reason != "found better coverage" {
		t.Errorf("expected reason preserved, got %q", trail[0].Reason)
	}
	if trail[0].Metadata["channel"] != "web" {
		t.Errorf("expected metadata preserved, got %v", trail[0].Metadata)
	}
}

func TestAuditStore_Count(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := store.Record(ctx, policy.AuditEntry{
			PolicyID:       "pol-1",
			FromStatus:     policy.StatusDraft,
			ToStatus:       policy.StatusPending,
			Action:         policy.ActionSubmitForApproval,
			TransitionedBy: "user-1",
			Timestamp:      time.Now(),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	count, err := store.Count(ctx, "pol-1")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}

	if count != 5 {
		t.Errorf("expected 5 entries, got %d", count)
	}
}

func TestAuditStore_TrailByDateRange(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		err := store.Record(ctx, policy.AuditEntry{
			PolicyID:       "pol-1",
			FromStatus:     policy.StatusActive,
			ToStatus:       policy.StatusSuspended,
			Action:         policy.ActionSuspend,
			TransitionedBy: "operator-1",
			Reason:         "check",
			Timestamp:      base.AddDate(0, 0, i),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// Range boundaries are inclusive
	entries, err := store.TrailByDateRange(ctx, "pol-1", base.AddDate(0, 0, 1), base.AddDate(0, 0, 3))
	if err != nil {
		t.Fatalf("TrailByDateRange failed: %v", err)
	}

	if len(entries) != 3 {
		t.Errorf("expected 3 entries in range, got %d", len(entries))
	}
}

func TestAuditStore_TrailByFromStatus(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	seed := []struct {
		from policy.Status
		to   policy.Status
	}{
		{policy.StatusDraft, policy.StatusPending},
		{policy.StatusPending, policy.StatusActive},
		{policy.StatusActive, policy.StatusSuspended},
		{policy.StatusSuspended, policy.StatusActive},
		{policy.StatusActive, policy.StatusExpired},
	}

	for _, s := range seed {
		err := store.Record(ctx, policy.AuditEntry{
			PolicyID:       "pol-1",
			FromStatus:     s.from,
			ToStatus:       s.to,
			Action:         policy.ActionExpire,
			TransitionedBy: "system",
			Timestamp:      time.Now(),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	from := policy.StatusActive
	entries, err := store.TrailByFromStatus(ctx, "pol-1", &from)
	if err != nil {
		t.Fatalf("TrailByFromStatus failed: %v", err)
	}

	if len(entries) != 2 {
		t.Errorf("expected 2 entries from ACTIVE, got %d", len(entries))
	}

	all, err := store.TrailByFromStatus(ctx, "pol-1", nil)
	if err != nil {
		t.Fatalf("TrailByFromStatus(nil) failed: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("expected 5 entries with nil filter, got %d", len(all))
	}
}

func TestAuditStore_MultiplePolicies(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	policies := []string{"pol-a", "pol-b", "pol-a"}
	for _, id := range policies {
		err := store.Record(ctx, policy.AuditEntry{
			PolicyID:       id,
			FromStatus:     policy.StatusDraft,
			ToStatus:       policy.StatusPending,
			Action:         policy.ActionSubmitForApproval,
			TransitionedBy: "user-1",
			Timestamp:      time.Now(),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	countA, _ := store.Count(ctx, "pol-a")
	if countA != 2 {
		t.Errorf("expected 2 entries for pol-a, got %d", countA)
	}

	countB, _ := store.Count(ctx, "pol-b")
	if countB != 1 {
		t.Errorf("expected 1 entry for pol-b, got %d", countB)
	}
}

func TestAuditStore_VerifyIntegrity(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := store.Record(ctx, policy.AuditEntry{
			PolicyID:       "pol-1",
			FromStatus:     policy.StatusDraft,
			ToStatus:       policy.StatusPending,
			Action:         policy.ActionSubmitForApproval,
			TransitionedBy: "user-1",
			Timestamp:      base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	ok, err := store.VerifyIntegrity(ctx, "pol-1")
	if err != nil {
		t.Fatalf("VerifyIntegrity failed: %v", err)
	}
	if !ok {
		t.Error("expected ordered trail to verify")
	}
}

func TestAuditStore_Clear(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	err := store.Record(ctx, policy.AuditEntry{
		PolicyID:       "pol-1",
		FromStatus:     policy.StatusDraft,
		ToStatus:       policy.StatusPending,
		Action:         policy.ActionSubmitForApproval,
		TransitionedBy: "user-1",
		Timestamp:      time.Now(),
	})
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	if err := store.Clear(ctx, "pol-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	count, err := store.Count(ctx, "pol-1")
	if err != nil {
		t.Fatalf("Count after clear failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 entries after clear, got %d", count)
	}
}

func TestAuditStore_RecordInvalidEntry(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	err := store.Record(ctx, policy.AuditEntry{
		PolicyID:       "", // Invalid
		FromStatus:     policy.StatusDraft,
		ToStatus:       policy.StatusPending,
		Action:         policy.ActionSubmitForApproval,
		TransitionedBy: "user-1",
	})
	if err == nil {
		t.Fatal("expected error for entry without policy ID")
	}
}

func TestAuditStore_ContextCancelled(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Record(ctx, policy.AuditEntry{
		PolicyID:       "pol-1",
		FromStatus:     policy.StatusDraft,
		ToStatus:       policy.StatusPending,
		Action:         policy.ActionSubmitForApproval,
		TransitionedBy: "user-1",
	})
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestAuditStore_TrailEmpty(t *testing.T) {
	store := newTestAuditStore(t)
	defer store.Close()

	ctx := context.Background()

	trail, err := store.TrailFor(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("TrailFor failed: %v", err)
	}

	if len(trail) != 0 {
		t.Errorf("expected 0 entries, got %d", len(trail))
	}
}

func newTestAuditStore(t *testing.T) *sqlite.AuditStore {
	t.Helper()

	tmpDir := t.TempDir()
	cfg := sqlite.Config{
		DSN:         "file:" + tmpDir + "/test.db?mode=rwc",
		AutoMigrate: true,
	}

	store, err := sqlite.NewAuditStore(cfg)
	if err != nil {
		t.Fatalf("NewAuditStore failed: %v", err)
	}

	return store
}
