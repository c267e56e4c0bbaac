package statemachine

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// Interpreter wraps the statekit interpreter with lifecycle-specific
// functionality. It drives a single policy through the statechart; the
// guards enforce role and reason constraints on every trigger.
type Interpreter struct {
	interp *statekit.Interpreter[*Context]
	ctx    *Context
}

// NewInterpreter creates an interpreter for the lifecycle machine.
func NewInterpreter(machine *statekit.MachineConfig[*Context], ctx *Context) *Interpreter {
	interp := statekit.NewInterpreter(machine)
	interp.UpdateContext(func(c **Context) {
		*c = ctx
	})
	return &Interpreter{
		interp: interp,
		ctx:    ctx,
	}
}

// Start initializes the interpreter and enters the initial state.
func (i *Interpreter) Start() {
	i.interp.Start()
	if i.ctx.Policy.Status == "" {
		i.ctx.Policy.Status = StatusFromMachine(i.interp.State().Value)
	}
}

// Stop stops the interpreter.
func (i *Interpreter) Stop() {
	i.interp.Stop()
}

// Status returns the current lifecycle status.
func (i *Interpreter) Status() policy.Status {
	return StatusFromMachine(i.interp.State().Value)
}

// Trigger attempts the named action for the given caller. The transition
// is validated against the table first so failures surface as typed errors
// rather than rejected machine events; the statekit guards still gate the
// edge itself.
func (i *Interpreter) Trigger(action policy.Action, userID, role, reason string) error {
	current := i.ctx.Policy.Status

	t, ok := i.ctx.Table.Find(current, action)
	if !ok {
		return policy.NewInvalidTransitionError(current, action, i.ctx.Table.ActionsFrom(current))
	}
	if !t.Allows(role) {
		return policy.NewPermissionError(action, t.AllowedRoles, role)
	}
	if t.RequiresReason && strings.TrimSpace(reason) == "" {
		return policy.NewMissingReasonError(action)
	}

	i.interp.Send(statekit.Event{
		Type: EventForAction(action),
		Payload: TransitionPayload{
			Transition: t,
			UserID:     userID,
			Role:       role,
			Reason:     reason,
		},
	})

	return nil
}

// IsTerminal returns true if the machine is in a final state.
func (i *Interpreter) IsTerminal() bool {
	return i.interp.Done()
}

// Context returns the interpreter context.
func (i *Interpreter) Context() *Context {
	return i.ctx
}

// ResumeFrom restores the interpreter to a specific status. Used when
// loading a persisted policy mid-lifecycle.
func (i *Interpreter) ResumeFrom(status policy.Status) error {
	snapshot := statekit.Snapshot[*Context]{
		MachineID:    "policy-lifecycle",
		CurrentState: statekit.StateID(status),
		Context:      i.ctx,
		CreatedAt:    time.Now(),
	}

	if err := i.interp.Restore(snapshot); err != nil {
		return fmt.Errorf("failed to restore status: %w", err)
	}

	i.ctx.Policy.Status = status
	return nil
}
