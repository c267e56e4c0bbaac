package policy

import (
	"time"
)

// AuditEntry records one executed transition. Entries are append-only and
// immutable once recorded.
type AuditEntry struct {
	ID             string            `json:"id"`
	PolicyID       string            `json:"policy_id"`
	FromStatus     Status            `json:"from_status"`
	ToStatus       Status            `json:"to_status"`
	Action         Action            `json:"action"`
	TransitionedBy string            `json:"transitioned_by"`
	Reason         string            `json:"reason,omitempty"`
	Timestamp      time.Time         `json:"timestamp"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Policy is the aggregate root for the lifecycle domain.
// Its Status may only change by applying the audit entry produced by a
// successful engine execution; no other code path mutates it.
type Policy struct {
	ID           string       `json:"id"`
	PolicyNumber string       `json:"policy_number"`
	Status       Status       `json:"status"`
	CustomerID   string       `json:"customer_id"`
	CoverageType string       `json:"coverage_type"`
	StartDate    time.Time    `json:"start_date"`
	EndDate      time.Time    `json:"end_date"`
	Premium      float64      `json:"premium"`
	CreatedBy    string       `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	AuditTrail   []AuditEntry `json:"audit_trail"`

	// Version supports optimistic concurrency in repositories.
	// Incremented on every successful update.
	Version int64 `json:"version"`
}

// New creates a policy in the DRAFT status.
func New(id, policyNumber, customerID, coverageType string, startDate, endDate time.Time, premium float64, createdBy string) *Policy {
	now := time.Now()
	return &Policy{
		ID:           id,
		PolicyNumber: policyNumber,
		Status:       StatusDraft,
		CustomerID:   customerID,
		CoverageType: coverageType,
		StartDate:    startDate,
		EndDate:      endDate,
		Premium:      premium,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
		AuditTrail:   make([]AuditEntry, 0),
	}
}

// Apply moves the policy to the entry's target status and appends the entry
// to the embedded audit trail. Callers must have validated the transition.
func (p *Policy) Apply(entry AuditEntry) {
	p.Status = entry.ToStatus
	p.UpdatedAt = entry.Timestamp
	p.AuditTrail = append(p.AuditTrail, entry)
}

// TransitionCount returns the number of recorded transitions on the aggregate.
func (p *Policy) TransitionCount() int {
	return len(p.AuditTrail)
}

// LastEntry returns the most recent audit entry, or nil if none exist.
func (p *Policy) LastEntry() *AuditEntry {
	if len(p.AuditTrail) == 0 {
		return nil
	}
	entry := p.AuditTrail[len(p.AuditTrail)-1]
	return &entry
}
