// Package policy provides the core domain model for the policy lifecycle.
package policy

// Status represents a lifecycle state of an insurance policy.
// Statuses are identified by stable strings, not behavioral definitions.
type Status string

// Canonical lifecycle statuses. A policy occupies exactly one at any instant.
const (
	StatusDraft     Status = "DRAFT"     // Initial state after creation
	StatusPending   Status = "PENDING"   // Submitted, awaiting approval
	StatusActive    Status = "ACTIVE"    // Coverage in force
	StatusSuspended Status = "SUSPENDED" // Coverage temporarily halted
	StatusCancelled Status = "CANCELLED" // Terminated by a party
	StatusExpired   Status = "EXPIRED"   // Coverage period ended
	StatusLapsed    Status = "LAPSED"    // Ended without renewal
)

// IsValid returns true if the status is a recognized canonical status.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusActive, StatusSuspended,
		StatusCancelled, StatusExpired, StatusLapsed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AllStatuses returns all canonical statuses.
func AllStatuses() []Status {
	return []Status{
		StatusDraft,
		StatusPending,
		StatusActive,
		StatusSuspended,
		StatusCancelled,
		StatusExpired,
		StatusLapsed,
	}
}
