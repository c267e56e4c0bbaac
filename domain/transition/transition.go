// Package transition defines the static table of legal lifecycle moves.
package transition

import (
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// Transition is a single allowed edge in the lifecycle graph: a permitted
// (from, action) -> to rule with role and reason constraints.
type Transition struct {
	// From is the status the policy must currently occupy.
	From policy.Status `yaml:"from" json:"from"`

	// To is the status the policy moves to.
	To policy.Status `yaml:"to" json:"to"`

	// Action is the verb that triggers this transition.
	Action policy.Action `yaml:"action" json:"action"`

	// AllowedRoles is the set of roles permitted to trigger the
	// transition. An empty set means any role may perform it.
	AllowedRoles []string `yaml:"allowed_roles" json:"allowed_roles"`

	// RequiresReason indicates whether a non-empty reason must accompany
	// the transition.
	RequiresReason bool `yaml:"requires_reason" json:"requires_reason"`
}

// Allows reports whether the given role may trigger this transition.
// An empty AllowedRoles set is unrestricted.
func (t Transition) Allows(role string) bool {
	if len(t.AllowedRoles) == 0 {
		return true
	}
	for _, r := range t.AllowedRoles {
		if r == role {
			return true
		}
	}
	return false
}
