package transition

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// Table construction errors.
var (
	// ErrDuplicateTransition indicates two transitions share a
	// (from, action) pair.
	ErrDuplicateTransition = errors.New("duplicate transition")

	// ErrInvalidStatus indicates a transition references an unknown status.
	ErrInvalidStatus = errors.New("invalid status in transition")

	// ErrInvalidAction indicates a transition references an unknown action.
	ErrInvalidAction = errors.New("invalid action in transition")

	// ErrEmptyTable indicates a table was built with no transitions.
	ErrEmptyTable = errors.New("transition table is empty")
)

// Table is the authoritative set of legal lifecycle moves. It is built once
// at startup and immutable thereafter; the read methods are safe for
// concurrent use after construction.
//
// The table is a partial function of (from, action) -> to: at most one
// transition exists per (from, action) pair.
type Table struct {
	transitions []Transition
	byFrom      map[policy.Status][]Transition
}

// NewTable builds a table from the given transitions. It fails if the set
// is empty, references an unknown status or action, or contains two entries
// with the same (from, action) pair.
func NewTable(transitions []Transition) (*Table, error) {
	if len(transitions) == 0 {
		return nil, ErrEmptyTable
	}

	byFrom := make(map[policy.Status][]Transition)
	seen := make(map[policy.Status]map[policy.Action]bool)

	for _, t := range transitions {
		if !t.From.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, t.From)
		}
		if !t.To.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, t.To)
		}
		if !t.Action.IsValid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAction, t.Action)
		}

		if seen[t.From] == nil {
			seen[t.From] = make(map[policy.Action]bool)
		}
		if seen[t.From][t.Action] {
			return nil, fmt.Errorf("%w: (%s, %s)", ErrDuplicateTransition, t.From, t.Action)
		}
		seen[t.From][t.Action] = true

		byFrom[t.From] = append(byFrom[t.From], t)
	}

	all := make([]Transition, len(transitions))
	copy(all, transitions)

	return &Table{
		transitions: all,
		byFrom:      byFrom,
	}, nil
}

// MustNewTable builds a table and panics on error. Intended for static
// tables defined at package init.
func MustNewTable(transitions []Transition) *Table {
	t, err := NewTable(transitions)
	if err != nil {
		panic(err)
	}
	return t
}

// TransitionsFrom returns the transitions whose From matches the given
// status, or nil if none exist.
func (t *Table) TransitionsFrom(status policy.Status) []Transition {
	entries := t.byFrom[status]
	if len(entries) == 0 {
		return nil
	}
	out := make([]Transition, len(entries))
	copy(out, entries)
	return out
}

// Find returns the unique transition for the (from, action) pair, if any.
func (t *Table) Find(from policy.Status, action policy.Action) (Transition, bool) {
	for _, tr := range t.byFrom[from] {
		if tr.Action == action {
			return tr, true
		}
	}
	return Transition{}, false
}

// ActionsFrom returns the actions available from the given status.
func (t *Table) ActionsFrom(status policy.Status) []policy.Action {
	entries := t.byFrom[status]
	if len(entries) == 0 {
		return nil
	}
	actions := make([]policy.Action, len(entries))
	for i, tr := range entries {
		actions[i] = tr.Action
	}
	return actions
}

// All returns every transition in the table.
func (t *Table) All() []Transition {
	out := make([]Transition, len(t.transitions))
	copy(out, t.transitions)
	return out
}

// Len returns the number of transitions in the table.
func (t *Table) Len() int {
	return len(t.transitions)
}

// DefaultTable returns the canonical insurance policy lifecycle table.
func DefaultTable() *Table {
	return MustNewTable([]Transition{
		// Submission path
		{From: policy.StatusDraft, To: policy.StatusPending, Action: policy.ActionSubmitForApproval,
			AllowedRoles: []string{"creator", "agent", "admin"}},
		{From: policy.StatusDraft, To: policy.StatusCancelled, Action: policy.ActionCancel,
			AllowedRoles: []string{"creator", "admin"}},

		// Approval path
		{From: policy.StatusPending, To: policy.StatusActive, Action: policy.ActionApprove,
			AllowedRoles: []string{"approver", "admin"}},
		{From: policy.StatusPending, To: policy.StatusDraft, Action: policy.ActionReject,
			AllowedRoles: []string{"approver", "admin"}, RequiresReason: true},
		{From: policy.StatusPending, To: policy.StatusCancelled, Action: policy.ActionCancel,
			AllowedRoles: []string{"creator", "admin"}},

		// In-force management
		{From: policy.StatusActive, To: policy.StatusSuspended, Action: policy.ActionSuspend,
			AllowedRoles: []string{"operator", "admin"}, RequiresReason: true},
		{From: policy.StatusActive, To: policy.StatusCancelled, Action: policy.ActionCancel,
			AllowedRoles: []string{"customer", "operator", "admin"}, RequiresReason: true},
		// Expiry is driven by the caller when the coverage period ends;
		// any role may report it.
		{From: policy.StatusActive, To: policy.StatusExpired, Action: policy.ActionExpire},

		// Suspension management
		{From: policy.StatusSuspended, To: policy.StatusActive, Action: policy.ActionResume,
			AllowedRoles: []string{"operator", "admin"}},
		{From: policy.StatusSuspended, To: policy.StatusCancelled, Action: policy.ActionCancel,
			AllowedRoles: []string{"operator", "admin"}, RequiresReason: true},

		// Post-expiry archival
		{From: policy.StatusExpired, To: policy.StatusLapsed, Action: policy.ActionArchive,
			AllowedRoles: []string{"admin"}},

		// CANCELLED and LAPSED have no outgoing transitions; they are
		// terminal by convention, not by enforcement.
	})
}
