package policy

// Action identifies a verb that moves a policy between lifecycle statuses.
type Action string

// Canonical transition actions.
const (
	ActionSubmitForApproval Action = "SUBMIT_FOR_APPROVAL"
	ActionApprove           Action = "APPROVE"
	ActionReject            Action = "REJECT"
	ActionSuspend           Action = "SUSPEND"
	ActionResume            Action = "RESUME"
	ActionCancel            Action = "CANCEL"
	ActionExpire            Action = "EXPIRE"
	ActionArchive           Action = "ARCHIVE"
)

// IsValid returns true if the action is a recognized canonical action.
func (a Action) IsValid() bool {
	switch a {
	case ActionSubmitForApproval, ActionApprove, ActionReject, ActionSuspend,
		ActionResume, ActionCancel, ActionExpire, ActionArchive:
		return true
	default:
		return false
	}
}

// String returns the string representation of the action.
func (a Action) String() string {
	return string(a)
}

// AllActions returns all canonical actions.
func AllActions() []Action {
	return []Action{
		ActionSubmitForApproval,
		ActionApprove,
		ActionReject,
		ActionSuspend,
		ActionResume,
		ActionCancel,
		ActionExpire,
		ActionArchive,
	}
}
