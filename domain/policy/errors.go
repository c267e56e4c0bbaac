package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Stable machine-readable error codes. Callers map these to transport-level
// status codes without string-matching messages.
const (
	CodePolicyNotFound         = "policy_not_found"
	CodeInvalidTransition      = "invalid_transition"
	CodeInsufficientPermission = "insufficient_permission"
	CodeMissingReason          = "missing_reason"
)

// Sentinel targets for errors.Is checks. The typed errors below match these
// through their Is methods.
var (
	// ErrPolicyNotFound indicates the referenced policy does not exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrInvalidTransition indicates no transition matches the current
	// status and action.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrInsufficientPermission indicates the role is not allowed to
	// perform the transition.
	ErrInsufficientPermission = errors.New("insufficient permission")

	// ErrMissingReason indicates a required reason was absent or empty.
	ErrMissingReason = errors.New("missing reason")
)

// NotFoundError is returned when a policy lookup fails.
type NotFoundError struct {
	PolicyID string
}

// NewNotFoundError creates a NotFoundError for the given policy ID.
func NewNotFoundError(policyID string) *NotFoundError {
	return &NotFoundError{PolicyID: policyID}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("policy %s not found", e.PolicyID)
}

// Code returns the stable machine-readable error code.
func (e *NotFoundError) Code() string { return CodePolicyNotFound }

// Is reports whether the target is the ErrPolicyNotFound sentinel.
func (e *NotFoundError) Is(target error) bool { return target == ErrPolicyNotFound }

// InvalidTransitionError is returned when no transition is defined for the
// current status and action. The message enumerates the actions that are
// available from the current status.
type InvalidTransitionError struct {
	CurrentStatus    Status
	Action           Action
	AvailableActions []Action
}

// NewInvalidTransitionError creates an InvalidTransitionError.
func NewInvalidTransitionError(current Status, action Action, available []Action) *InvalidTransitionError {
	return &InvalidTransitionError{
		CurrentStatus:    current,
		Action:           action,
		AvailableActions: available,
	}
}

func (e *InvalidTransitionError) Error() string {
	if len(e.AvailableActions) == 0 {
		return fmt.Sprintf("invalid transition: action %s is not allowed from status %s (no actions available)",
			e.Action, e.CurrentStatus)
	}

	names := make([]string, len(e.AvailableActions))
	for i, a := range e.AvailableActions {
		names[i] = string(a)
	}
	return fmt.Sprintf("invalid transition: action %s is not allowed from status %s (available: %s)",
		e.Action, e.CurrentStatus, strings.Join(names, ", "))
}

// Code returns the stable machine-readable error code.
func (e *InvalidTransitionError) Code() string { return CodeInvalidTransition }

// Is reports whether the target is the ErrInvalidTransition sentinel.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// PermissionError is returned when the caller's role is outside the
// transition's allowed role set.
type PermissionError struct {
	Action        Action
	RequiredRoles []string
	Role          string
}

// NewPermissionError creates a PermissionError.
func NewPermissionError(action Action, requiredRoles []string, role string) *PermissionError {
	return &PermissionError{
		Action:        action,
		RequiredRoles: requiredRoles,
		Role:          role,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("insufficient permission: action %s requires one of [%s], got role %q",
		e.Action, strings.Join(e.RequiredRoles, ", "), e.Role)
}

// Code returns the stable machine-readable error code.
func (e *PermissionError) Code() string { return CodeInsufficientPermission }

// Is reports whether the target is the ErrInsufficientPermission sentinel.
func (e *PermissionError) Is(target error) bool { return target == ErrInsufficientPermission }

// MissingReasonError is returned when a transition requires a reason and
// none was supplied.
type MissingReasonError struct {
	Action Action
}

// NewMissingReasonError creates a MissingReasonError.
func NewMissingReasonError(action Action) *MissingReasonError {
	return &MissingReasonError{Action: action}
}

func (e *MissingReasonError) Error() string {
	return fmt.Sprintf("missing reason: action %s requires a reason", e.Action)
}

// Code returns the stable machine-readable error code.
func (e *MissingReasonError) Code() string { return CodeMissingReason }

// Is reports whether the target is the ErrMissingReason sentinel.
func (e *MissingReasonError) Is(target error) bool { return target == ErrMissingReason }

// Coder is implemented by errors that carry a stable machine-readable code.
type Coder interface {
	Code() string
}

// CodeOf extracts the machine-readable code from an error chain, or returns
// an empty string if none is present.
func CodeOf(err error) string {
	var c Coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}
