package statemachine

import (
	"errors"
	"testing"
	"time"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
)

func newMachinePolicy() *policy.Policy {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return policy.New("pol-m1", "POL-2026-M001", "cust-1", "home", start, start.AddDate(1, 0, 0), 800, "user-1")
}

func startedInterpreter(t *testing.T) *Interpreter {
	t.Helper()

	machine, err := NewLifecycleMachine(nil)
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	interp := NewInterpreter(machine, NewContext(newMachinePolicy(), nil))
	interp.Start()
	return interp
}

func TestNewLifecycleMachine(t *testing.T) {
	t.Parallel()

	if _, err := NewLifecycleMachine(nil); err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}
}

func TestNewLifecycleMachine_CustomTable(t *testing.T) {
	t.Parallel()

	// A minimal table: one single-edge state, everything else terminal.
	table := transition.MustNewTable([]transition.Transition{
		{From: policy.StatusDraft, To: policy.StatusCancelled, Action: policy.ActionCancel, AllowedRoles: []string{"admin"}, RequiresReason: true},
	})

	machine, err := NewLifecycleMachine(table)
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	interp := NewInterpreter(machine, NewContext(newMachinePolicy(), table))
	interp.Start()
	defer interp.Stop()

	if err := interp.Trigger(policy.ActionCancel, "user-1", "admin", "duplicate policy"); err != nil {
		t.Fatalf("Trigger(CANCEL) error = %v", err)
	}
	if interp.Status() != policy.StatusCancelled {
		t.Errorf("Status() = %v, want CANCELLED", interp.Status())
	}
	if !interp.IsTerminal() {
		t.Error("CANCELLED should be terminal in this table")
	}
}

func TestInterpreter_StartsInDraft(t *testing.T) {
	t.Parallel()

	interp := startedInterpreter(t)
	defer interp.Stop()

	if interp.Status() != policy.StatusDraft {
		t.Errorf("Status() = %v, want DRAFT", interp.Status())
	}
	if interp.IsTerminal() {
		t.Error("DRAFT should not be terminal")
	}
}

func TestInterpreter_Trigger_HappyPath(t *testing.T) {
	t.Parallel()

	interp := startedInterpreter(t)
	defer interp.Stop()

	steps := []struct {
		action policy.Action
		role   string
		reason string
		want   policy.Status
	}{
		{policy.ActionSubmitForApproval, "agent", "", policy.StatusPending},
		{policy.ActionApprove, "approver", "", policy.StatusActive},
		{policy.ActionSuspend, "operator", "payment missed", policy.StatusSuspended},
		{policy.ActionResume, "operator", "", policy.StatusActive},
		{policy.ActionExpire, "system", "", policy.StatusExpired},
		{policy.ActionArchive, "admin", "", policy.StatusLapsed},
	}

	for _, step := range steps {
		if err := interp.Trigger(step.action, "user-1", step.role, step.reason); err != nil {
			t.Fatalf("Trigger(%s) error = %v", step.action, err)
		}
		if interp.Status() != step.want {
			t.Fatalf("after %s: Status() = %v, want %v", step.action, interp.Status(), step.want)
		}
	}

	if !interp.IsTerminal() {
		t.Error("LAPSED should be terminal")
	}

	trail := interp.Context().Trail
	if trail.Count() != len(steps) {
		t.Errorf("Trail.Count() = %d, want %d", trail.Count(), len(steps))
	}
	if !trail.VerifyIntegrity() {
		t.Error("trail should pass the integrity check")
	}
}

func TestInterpreter_Trigger_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		action  policy.Action
		role    string
		reason  string
		wantErr error
	}{
		{"illegal action", policy.ActionApprove, "approver", "", policy.ErrInvalidTransition},
		{"wrong role", policy.ActionSubmitForApproval, "customer", "", policy.ErrInsufficientPermission},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			interp := startedInterpreter(t)
			defer interp.Stop()

			err := interp.Trigger(tt.action, "user-1", tt.role, tt.reason)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Trigger() error = %v, want %v", err, tt.wantErr)
			}

			// Status and trail are untouched on failure.
			if interp.Status() != policy.StatusDraft {
				t.Errorf("Status() = %v, want DRAFT after failed trigger", interp.Status())
			}
			if interp.Context().Trail.Count() != 0 {
				t.Errorf("Trail.Count() = %d, want 0", interp.Context().Trail.Count())
			}
		})
	}
}

func TestInterpreter_Trigger_MissingReason(t *testing.T) {
	t.Parallel()

	interp := startedInterpreter(t)
	defer interp.Stop()

	if err := interp.Trigger(policy.ActionSubmitForApproval, "u", "agent", ""); err != nil {
		t.Fatalf("submit error = %v", err)
	}
	if err := interp.Trigger(policy.ActionApprove, "u", "approver", ""); err != nil {
		t.Fatalf("approve error = %v", err)
	}

	err := interp.Trigger(policy.ActionSuspend, "u", "operator", "  ")
	if !errors.Is(err, policy.ErrMissingReason) {
		t.Errorf("Trigger() error = %v, want missing reason", err)
	}
	if interp.Status() != policy.StatusActive {
		t.Errorf("Status() = %v, want ACTIVE", interp.Status())
	}
}

func TestInterpreter_ResumeFrom(t *testing.T) {
	t.Parallel()

	machine, err := NewLifecycleMachine(nil)
	if err != nil {
		t.Fatalf("NewLifecycleMachine() error = %v", err)
	}

	p := newMachinePolicy()
	p.Status = policy.StatusSuspended

	interp := NewInterpreter(machine, NewContext(p, nil))
	interp.Start()
	defer interp.Stop()

	if err := interp.ResumeFrom(policy.StatusSuspended); err != nil {
		t.Fatalf("ResumeFrom() error = %v", err)
	}
	if interp.Status() != policy.StatusSuspended {
		t.Errorf("Status() = %v, want SUSPENDED", interp.Status())
	}

	// A resumed interpreter continues from the restored status.
	if err := interp.Trigger(policy.ActionResume, "u", "operator", ""); err != nil {
		t.Fatalf("Trigger(RESUME) error = %v", err)
	}
	if interp.Status() != policy.StatusActive {
		t.Errorf("Status() = %v, want ACTIVE", interp.Status())
	}
}

func TestInterpreter_TrailRecordsCallerIdentity(t *testing.T) {
	t.Parallel()

	interp := startedInterpreter(t)
	defer interp.Stop()

	if err := interp.Trigger(policy.ActionSubmitForApproval, "user-42", "agent", ""); err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}

	entry := interp.Context().Trail.LastEntry()
	if entry == nil {
		t.Fatal("trail entry missing after trigger")
	}
	if entry.TransitionedBy != "user-42" {
		t.Errorf("TransitionedBy = %q, want %q", entry.TransitionedBy, "user-42")
	}
	if entry.FromStatus != policy.StatusDraft || entry.ToStatus != policy.StatusPending {
		t.Errorf("entry = %v -> %v, want DRAFT -> PENDING", entry.FromStatus, entry.ToStatus)
	}
}
