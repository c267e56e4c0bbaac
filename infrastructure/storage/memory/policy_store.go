// Package memory provides in-memory storage adapters, used as the default
// and test implementations of the persistence contracts.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// policyEntry holds a deep copy of a policy for storage.
type policyEntry struct {
	data    []byte
	version int64
}

// PolicyStore is an in-memory implementation of policy.Repository.
type PolicyStore struct {
	policies map[string]*policyEntry
	mu       sync.RWMutex
}

// NewPolicyStore creates a new in-memory policy store.
func NewPolicyStore() *PolicyStore {
	return &PolicyStore{
		policies: make(map[string]*policyEntry),
	}
}

// Save persists a new policy.
func (s *PolicyStore) Save(ctx context.Context, p *policy.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.ID == "" {
		return policy.ErrInvalidPolicyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.policies[p.ID]; exists {
		return policy.ErrPolicyExists
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	s.policies[p.ID] = &policyEntry{data: data, version: p.Version}
	return nil
}

// Get retrieves a policy by ID.
func (s *PolicyStore) Get(ctx context.Context, id string) (*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id == "" {
		return nil, policy.ErrInvalidPolicyID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.policies[id]
	if !ok {
		return nil, policy.NewNotFoundError(id)
	}

	var p policy.Policy
	if err := json.Unmarshal(entry.data, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// Update replaces an existing policy if the stored version matches.
func (s *PolicyStore) Update(ctx context.Context, p *policy.Policy) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if p.ID == "" {
		return policy.ErrInvalidPolicyID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.policies[p.ID]
	if !exists {
		return policy.NewNotFoundError(p.ID)
	}

	if entry.version != p.Version {
		return policy.ErrVersionConflict
	}

	p.Version++
	data, err := json.Marshal(p)
	if err != nil {
		p.Version--
		return err
	}

	s.policies[p.ID] = &policyEntry{data: data, version: p.Version}
	return nil
}

// List returns policies matching the filter, in no particular order.
func (s *PolicyStore) List(ctx context.Context, filter policy.ListFilter) ([]*policy.Policy, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*policy.Policy
	for _, entry := range s.policies {
		var p policy.Policy
		if err := json.Unmarshal(entry.data, &p); err != nil {
			continue
		}
		if !matchesFilter(&p, filter) {
			continue
		}
		result = append(result, &p)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return []*policy.Policy{}, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}

	return result, nil
}

func matchesFilter(p *policy.Policy, filter policy.ListFilter) bool {
	if len(filter.Status) > 0 {
		found := false
		for _, status := range filter.Status {
			if p.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if filter.CustomerID != "" && p.CustomerID != filter.CustomerID {
		return false
	}

	return true
}

var _ policy.Repository = (*PolicyStore)(nil)
