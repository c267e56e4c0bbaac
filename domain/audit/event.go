// Package audit provides the audit trail domain: immutable transition
// records, state-change events, and the store and publisher contracts.
package audit

import (
	"time"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// StateChangeEvent is the ephemeral payload forwarded to external
// notification collaborators after a successful transition. It is not
// persisted by this core.
type StateChangeEvent struct {
	PolicyID       string        `json:"policy_id"`
	PreviousStatus policy.Status `json:"previous_status"`
	NewStatus      policy.Status `json:"new_status"`
	Action         policy.Action `json:"action"`
	TransitionedBy string        `json:"transitioned_by"`
	Reason         string        `json:"reason,omitempty"`
	Timestamp      time.Time     `json:"timestamp"`
}

// EventFromEntry derives a state-change event from an audit entry.
func EventFromEntry(entry policy.AuditEntry) StateChangeEvent {
	return StateChangeEvent{
		PolicyID:       entry.PolicyID,
		PreviousStatus: entry.FromStatus,
		NewStatus:      entry.ToStatus,
		Action:         entry.Action,
		TransitionedBy: entry.TransitionedBy,
		Reason:         entry.Reason,
		Timestamp:      entry.Timestamp,
	}
}

// HistoryRecord is a display projection of an audit entry.
type HistoryRecord struct {
	FromStatus     policy.Status `json:"from_status"`
	ToStatus       policy.Status `json:"to_status"`
	TransitionedBy string        `json:"transitioned_by"`
	Timestamp      time.Time     `json:"timestamp"`
	Reason         string        `json:"reason,omitempty"`
}
