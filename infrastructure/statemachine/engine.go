// Package statemachine provides the lifecycle engine: the single authority
// on whether a transition may occur and on producing its audit artifacts.
package statemachine

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
)

// Result is the outcome of a successful transition: the immutable audit
// entry and the ephemeral state-change event derived from it.
type Result struct {
	Entry policy.AuditEntry
	Event audit.StateChangeEvent
}

// Engine validates and executes transitions against an injected table.
// It holds no mutable state and performs no I/O; every method is a pure
// decision over its inputs plus the static table, safe for any number of
// concurrent callers without locking.
type Engine struct {
	table *transition.Table
	now   func() time.Time
	newID func() string
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the timestamp source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator overrides the audit entry ID source. Used by tests.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// NewEngine creates an engine over the given table. A nil table falls back
// to the canonical default lifecycle.
func NewEngine(table *transition.Table, opts ...Option) *Engine {
	e := &Engine{
		table: table,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	if e.table == nil {
		e.table = transition.DefaultTable()
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Table returns the table the engine decides against.
func (e *Engine) Table() *transition.Table {
	return e.table
}

// ValidateTransition looks up the unique transition for the current status
// and action. It fails with an InvalidTransitionError enumerating the
// actions that are available from the current status.
func (e *Engine) ValidateTransition(current policy.Status, action policy.Action) (transition.Transition, error) {
	t, ok := e.table.Find(current, action)
	if !ok {
		return transition.Transition{}, policy.NewInvalidTransitionError(current, action, e.table.ActionsFrom(current))
	}
	return t, nil
}

// ValidatePermission checks the role against the transition's allowed set.
// An empty allowed set means any role may perform the transition.
func (e *Engine) ValidatePermission(t transition.Transition, role string) error {
	if !t.Allows(role) {
		return policy.NewPermissionError(t.Action, t.AllowedRoles, role)
	}
	return nil
}

// ValidateReason checks that a reason accompanies the transition when the
// table demands one. A whitespace-only reason counts as absent.
func (e *Engine) ValidateReason(t transition.Transition, reason string) error {
	if t.RequiresReason && strings.TrimSpace(reason) == "" {
		return policy.NewMissingReasonError(t.Action)
	}
	return nil
}

// ExecuteTransition runs the three validations in fixed order (legality,
// then permission, then reason) and, on success, synthesizes a fresh audit
// entry and the state-change event derived from it. The ordering is part of
// the contract: an unauthorized role attempting a transition that also
// lacks a reason observes the permission error.
func (e *Engine) ExecuteTransition(current policy.Status, action policy.Action, userID, role, policyID, reason string) (Result, error) {
	t, err := e.ValidateTransition(current, action)
	if err != nil {
		return Result{}, err
	}
	if err := e.ValidatePermission(t, role); err != nil {
		return Result{}, err
	}
	if err := e.ValidateReason(t, reason); err != nil {
		return Result{}, err
	}

	entry := policy.AuditEntry{
		ID:             e.newID(),
		PolicyID:       policyID,
		FromStatus:     current,
		ToStatus:       t.To,
		Action:         action,
		TransitionedBy: userID,
		Reason:         reason,
		Timestamp:      e.now(),
	}

	return Result{
		Entry: entry,
		Event: audit.EventFromEntry(entry),
	}, nil
}

// ValidTransitions returns the transitions available from the given status.
func (e *Engine) ValidTransitions(status policy.Status) []transition.Transition {
	return e.table.TransitionsFrom(status)
}

// AvailableActions returns the actions available from the given status.
func (e *Engine) AvailableActions(status policy.Status) []policy.Action {
	return e.table.ActionsFrom(status)
}

// CanReachStatus reports whether a path of legal transitions connects from
// to to. It is a breadth-first search with a visited set, so it terminates
// on graphs with cycles. A status trivially reaches itself.
func (e *Engine) CanReachStatus(from, to policy.Status) bool {
	if from == to {
		return true
	}

	visited := map[policy.Status]bool{from: true}
	frontier := []policy.Status{from}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		for _, t := range e.table.TransitionsFrom(current) {
			if t.To == to {
				return true
			}
			if !visited[t.To] {
				visited[t.To] = true
				frontier = append(frontier, t.To)
			}
		}
	}

	return false
}
