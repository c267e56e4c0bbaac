package statemachine

import (
	"strings"

	"github.com/felixgeelhaar/statekit"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// guardRoleAllowed checks the caller's role against the transition's
// allowed set. An empty allowed set is unrestricted.
func guardRoleAllowed(ctx *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return false
	}
	return payload.Transition.Allows(payload.Role)
}

// guardReasonPresent checks that a reason accompanies the transition when
// the table demands one.
func guardReasonPresent(ctx *Context, event statekit.Event) bool {
	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return false
	}
	if !payload.Transition.RequiresReason {
		return true
	}
	return strings.TrimSpace(payload.Reason) != ""
}

// recordTransition applies the transition to the policy and records it in
// the trail.
func recordTransition(ctx **Context, event statekit.Event) {
	if ctx == nil || *ctx == nil || (*ctx).Policy == nil {
		return
	}

	payload, ok := event.Payload.(TransitionPayload)
	if !ok {
		return
	}

	c := *ctx
	entry := policy.AuditEntry{
		PolicyID:       c.Policy.ID,
		FromStatus:     c.Policy.Status,
		ToStatus:       payload.Transition.To,
		Action:         payload.Transition.Action,
		TransitionedBy: payload.UserID,
		Reason:         payload.Reason,
	}

	if c.Trail != nil {
		c.Trail.Append(entry)
		if last := c.Trail.LastEntry(); last != nil {
			entry = *last
		}
	}

	c.Policy.Apply(entry)
}
