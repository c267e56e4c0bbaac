package statemachine

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
)

// Context carries a policy through the statekit machine.
type Context struct {
	Policy *policy.Policy
	Table  *transition.Table
	Trail  *audit.Trail
}

// NewContext creates a machine context for the given policy.
func NewContext(p *policy.Policy, table *transition.Table) *Context {
	if table == nil {
		table = transition.DefaultTable()
	}
	return &Context{
		Policy: p,
		Table:  table,
		Trail:  audit.NewTrail(p.ID),
	}
}

// TransitionPayload carries the resolved transition and caller identity
// with a lifecycle event.
type TransitionPayload struct {
	Transition transition.Transition
	UserID     string
	Role       string
	Reason     string
}

// EventForAction returns the statekit event type for a lifecycle action.
func EventForAction(action policy.Action) statekit.EventType {
	return statekit.EventType(action)
}

// StatusFromMachine converts a machine state ID to a domain status.
func StatusFromMachine(stateID statekit.StateID) policy.Status {
	return policy.Status(stateID)
}

// NewLifecycleMachine compiles a transition table into a statekit
// statechart. Each canonical status becomes a state; each table entry
// becomes an edge gated by the role and reason guards. Statuses with no
// outgoing transitions are final.
func NewLifecycleMachine(table *transition.Table) (*statekit.MachineConfig[*Context], error) {
	if table == nil {
		table = transition.DefaultTable()
	}

	builder := statekit.NewMachine[*Context]("policy-lifecycle").
		WithInitial(statekit.StateID(policy.StatusDraft)).
		WithContext(&Context{}).
		WithAction("recordTransition", recordTransition).
		WithGuard("roleAllowed", guardRoleAllowed).
		WithGuard("reasonPresent", guardReasonPresent)

	for _, status := range policy.AllStatuses() {
		state := builder.State(statekit.StateID(status))

		outgoing := table.TransitionsFrom(status)
		if len(outgoing) == 0 {
			builder = state.Final().Done()
			continue
		}

		edges := state.
			On(EventForAction(outgoing[0].Action)).
			Target(statekit.StateID(outgoing[0].To)).
			Guard("roleAllowed").
			Guard("reasonPresent").
			Do("recordTransition")

		for _, t := range outgoing[1:] {
			edges = edges.
				On(EventForAction(t.Action)).
				Target(statekit.StateID(t.To)).
				Guard("roleAllowed").
				Guard("reasonPresent").
				Do("recordTransition")
		}

		builder = edges.Done()
	}

	return builder.Build()
}
