package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// PolicyStore is a PostgreSQL-backed implementation of policy.Repository.
type PolicyStore struct {
	pool   *pgxpool.Pool
	schema string
}

// NewPolicyStore creates a new PostgreSQL policy store.
func NewPolicyStore(pool *pgxpool.Pool, schema string) *PolicyStore {
	if schema == "" {
		schema = "public"
	}
	return &PolicyStore{
		pool:   pool,
		schema: schema,
	}
}

// tableName returns the fully qualified table name.
func (s *PolicyStore) tableName() string {
	return fmt.Sprintf("%s.policies", s.schema)
}

// Save persists a new policy.
func (s *PolicyStore) Save(ctx context.Context, p *policy.Policy) error {
	if p.ID == "" {
		return policy.ErrInvalidPolicyID
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, policy_number, status, data, version, customer_id, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, s.tableName())

	_, err = s.pool.Exec(ctx, query,
		p.ID,
		p.PolicyNumber,
		string(p.Status),
		data,
		p.Version,
		p.CustomerID,
		p.UpdatedAt,
	)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return policy.ErrPolicyExists
		}
		return s.wrapError(err)
	}

	return nil
}

// Get retrieves a policy by ID.
func (s *PolicyStore) Get(ctx context.Context, id string) (*policy.Policy, error) {
	if id == "" {
		return nil, policy.ErrInvalidPolicyID
	}

	query := fmt.Sprintf(`SELECT data FROM %s WHERE id = $1`, s.tableName())

	var data []byte
	err := s.pool.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, policy.NewNotFoundError(id)
		}
		return nil, s.wrapError(err)
	}

	var p policy.Policy
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("unmarshal policy: %w", err)
	}

	return &p, nil
}

// Update replaces the stored policy if the caller holds the current
// version. The stored version is incremented on success; a stale caller
// gets policy.ErrVersionConflict.
func (s *PolicyStore) Update(ctx context.Context, p *policy.Policy) error {
	if p.ID == "" {
		return policy.ErrInvalidPolicyID
	}

	next := *p
	next.Version = p.Version + 1

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("marshal policy: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET policy_number = $3,
			status = $4,
			data = $5,
			version = $6,
			customer_id = $7,
			updated_at = $8
		WHERE id = $1 AND version = $2
	`, s.tableName())

	result, err := s.pool.Exec(ctx, query,
		p.ID,
		p.Version,
		next.PolicyNumber,
		string(next.Status),
		data,
		next.Version,
		next.CustomerID,
		next.UpdatedAt,
	)
	if err != nil {
		return s.wrapError(err)
	}

	if result.RowsAffected() == 0 {
		// Distinguish a missing row from a stale version.
		exists, err := s.exists(ctx, p.ID)
		if err != nil {
			return err
		}
		if !exists {
			return policy.NewNotFoundError(p.ID)
		}
		return policy.ErrVersionConflict
	}

	p.Version = next.Version
	return nil
}

// List returns policies matching the filter.
func (s *PolicyStore) List(ctx context.Context, filter policy.ListFilter) ([]*policy.Policy, error) {
	query, args := s.buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrapError(err)
	}
	defer rows.Close()

	var policies []*policy.Policy
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var p policy.Policy
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal policy: %w", err)
		}
		policies = append(policies, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, s.wrapError(err)
	}

	return policies, nil
}

// buildListQuery constructs the SELECT query for listing policies.
func (s *PolicyStore) buildListQuery(filter policy.ListFilter) (string, []any) {
	var (
		conditions []string
		args       []any
	)

	if len(filter.Status) > 0 {
		statuses := make([]string, len(filter.Status))
		for i, st := range filter.Status {
			statuses[i] = string(st)
		}
		args = append(args, statuses)
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	if filter.CustomerID != "" {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT data FROM %s %s ORDER BY updated_at DESC", s.tableName(), whereClause)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	return query, args
}

// exists reports whether a policy row is present.
func (s *PolicyStore) exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, s.tableName())

	var exists bool
	if err := s.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, s.wrapError(err)
	}

	return exists, nil
}

// wrapError wraps database errors with storage errors.
func (s *PolicyStore) wrapError(err error) error {
	if err == nil {
		return nil
	}

	return errors.Join(ErrConnectionFailed, err)
}

// Ensure PolicyStore implements policy.Repository
var _ policy.Repository = (*PolicyStore)(nil)
