package policy

import (
	"context"
	"errors"
)

// Repository errors shared by all adapters.
var (
	// ErrPolicyExists is returned when saving a policy whose ID is taken.
	ErrPolicyExists = errors.New("policy already exists")

	// ErrInvalidPolicyID is returned when a policy ID is empty.
	ErrInvalidPolicyID = errors.New("invalid policy ID")

	// ErrVersionConflict is returned when an update observes a stale
	// version. Callers re-read and retry against the fresh state.
	ErrVersionConflict = errors.New("policy version conflict")
)

// ListFilter narrows List results.
type ListFilter struct {
	// Status restricts results to the given statuses (empty means all).
	Status []Status

	// CustomerID restricts results to a single customer.
	CustomerID string

	// Limit is the maximum number of policies to return (0 = no limit).
	Limit int

	// Offset is the number of policies to skip.
	Offset int
}

// Repository defines the persistence contract for policies.
// Implementations may be in-memory, PostgreSQL, or any other durable
// keyed store.
type Repository interface {
	// Save persists a new policy. Fails with ErrPolicyExists if the ID
	// is already taken.
	Save(ctx context.Context, p *Policy) error

	// Get retrieves a policy by ID. Fails with a NotFoundError if absent.
	Get(ctx context.Context, id string) (*Policy, error)

	// Update replaces an existing policy. The write succeeds only if the
	// stored version matches p.Version; on success the stored version is
	// incremented. Fails with ErrVersionConflict on a stale write.
	Update(ctx context.Context, p *Policy) error

	// List returns policies matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Policy, error)
}
