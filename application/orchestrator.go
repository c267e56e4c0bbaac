// Package application provides the orchestration layer that ties policy
// records to the lifecycle engine and the audit trail.
package application

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
	"github.com/felixgeelhaar/lifecycle-go/domain/transition"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/lock"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/logging"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/statemachine"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/storage/memory"
)

// Orchestrator is the only component permitted to mutate a policy's status.
// It owns policy records, invokes the engine, persists the resulting state,
// and forwards entries to the audit store and events to the publisher.
type Orchestrator struct {
	repository policy.Repository
	auditStore audit.Store
	publisher  audit.Publisher
	engine     *statemachine.Engine
	locker     lock.PolicyLocker
	maxRetries int
	tracer     trace.Tracer
}

// Config contains configuration for the orchestrator. Zero-value fields
// fall back to in-memory defaults.
type Config struct {
	Repository policy.Repository
	AuditStore audit.Store
	Publisher  audit.Publisher
	Engine     *statemachine.Engine
	Locker     lock.PolicyLocker

	// MaxRetries bounds re-reads after a version conflict when another
	// transition on the same policy landed first.
	MaxRetries int
}

// NewOrchestrator creates an orchestrator with the given configuration.
func NewOrchestrator(config Config) (*Orchestrator, error) {
	o := &Orchestrator{
		repository: config.Repository,
		auditStore: config.AuditStore,
		publisher:  config.Publisher,
		engine:     config.Engine,
		locker:     config.Locker,
		maxRetries: config.MaxRetries,
	}

	if o.repository == nil {
		o.repository = memory.NewPolicyStore()
	}
	if o.auditStore == nil {
		o.auditStore = memory.NewAuditStore()
	}
	if o.publisher == nil {
		o.publisher = audit.NopPublisher{}
	}
	if o.engine == nil {
		o.engine = statemachine.NewEngine(nil)
	}
	if o.locker == nil {
		o.locker = lock.NewKeyedMutex()
	}
	if o.maxRetries <= 0 {
		o.maxRetries = 3
	}
	o.tracer = otel.Tracer("lifecycle-go/application")

	return o, nil
}

// Engine returns the engine the orchestrator decides with.
func (o *Orchestrator) Engine() *statemachine.Engine {
	return o.engine
}

// CreatePolicyInput carries the caller-supplied policy attributes.
type CreatePolicyInput struct {
	CustomerID   string
	CoverageType string
	StartDate    time.Time
	EndDate      time.Time
	Premium      float64
}

// CreatePolicy creates a policy in the DRAFT status with a fresh ID and a
// generated human-readable policy number.
func (o *Orchestrator) CreatePolicy(ctx context.Context, input CreatePolicyInput, userID string) (*policy.Policy, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.create_policy")
	defer span.End()

	p := policy.New(
		uuid.New().String(),
		generatePolicyNumber(),
		input.CustomerID,
		input.CoverageType,
		input.StartDate,
		input.EndDate,
		input.Premium,
		userID,
	)

	if err := o.repository.Save(ctx, p); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to save policy: %w", err)
	}

	span.SetAttributes(
		attribute.String("policy.id", p.ID),
		attribute.String("policy.number", p.PolicyNumber),
	)

	logging.Info().
		Add(logging.Component("orchestrator")).
		Add(logging.PolicyID(p.ID)).
		Add(logging.PolicyNumber(p.PolicyNumber)).
		Add(logging.UserID(userID)).
		Msg("policy created")

	return p, nil
}

// TransitionPolicy executes the named action against the policy's current
// status. On success the new status is persisted, the audit entry recorded,
// and the state-change event published. Engine errors propagate unchanged
// and the stored policy is left untouched.
//
// Transitions are serialized per policy: the lock is held around the
// read-decide-write-record step, so transitions on different policies proceed
// in parallel. A version conflict means another transition landed first; the
// cycle is retried against the fresh status, which either succeeds or
// surfaces an InvalidTransitionError against the updated state.
func (o *Orchestrator) TransitionPolicy(ctx context.Context, policyID string, action policy.Action, userID, role, reason string) (*policy.Policy, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.transition_policy",
		trace.WithAttributes(
			attribute.String("policy.id", policyID),
			attribute.String("policy.action", string(action)),
		))
	defer span.End()

	var (
		updated *policy.Policy
		result  statemachine.Result
	)

	err := o.locker.WithLock(ctx, policyID, func(ctx context.Context) error {
		for attempt := 0; ; attempt++ {
			p, err := o.repository.Get(ctx, policyID)
			if err != nil {
				return err
			}

			res, err := o.engine.ExecuteTransition(p.Status, action, userID, role, p.ID, reason)
			if err != nil {
				return err
			}

			p.Apply(res.Entry)

			if err := o.repository.Update(ctx, p); err != nil {
				if errors.Is(err, policy.ErrVersionConflict) && attempt < o.maxRetries {
					continue
				}
				return fmt.Errorf("failed to persist transition: %w", err)
			}

			// Record while the lock is still held so the trail for this
			// policy is appended in transition order.
			if err := o.auditStore.Record(ctx, res.Entry); err != nil {
				return fmt.Errorf("failed to record audit entry: %w", err)
			}

			updated = p
			result = res
			return nil
		}
	})
	if err != nil {
		span.RecordError(err)
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.PolicyID(policyID)).
			Add(logging.ActionField(action)).
			Add(logging.Role(role)).
			Add(logging.ErrorCode(policy.CodeOf(err))).
			Add(logging.ErrorField(err)).
			Msg("transition rejected")
		return nil, err
	}

	// Notification delivery is best effort; the transition is already
	// committed and recorded.
	if err := o.publisher.Publish(ctx, result.Event); err != nil {
		logging.Warn().
			Add(logging.Component("orchestrator")).
			Add(logging.PolicyID(policyID)).
			Add(logging.ErrorField(err)).
			Msg("state change event delivery failed")
	}

	span.SetAttributes(
		attribute.String("policy.from_status", string(result.Entry.FromStatus)),
		attribute.String("policy.to_status", string(result.Entry.ToStatus)),
	)

	logging.Info().
		Add(logging.Component("orchestrator")).
		Add(logging.PolicyID(policyID)).
		Add(logging.FromStatus(result.Entry.FromStatus)).
		Add(logging.ToStatus(result.Entry.ToStatus)).
		Add(logging.ActionField(action)).
		Add(logging.UserID(userID)).
		Msg("policy transitioned")

	return updated, nil
}

// GetPolicy retrieves a policy by ID.
func (o *Orchestrator) GetPolicy(ctx context.Context, policyID string) (*policy.Policy, error) {
	return o.repository.Get(ctx, policyID)
}

// GetAuditTrail returns the recorded trail for a policy after verifying it
// exists.
func (o *Orchestrator) GetAuditTrail(ctx context.Context, policyID string) ([]policy.AuditEntry, error) {
	if _, err := o.repository.Get(ctx, policyID); err != nil {
		return nil, err
	}
	return o.auditStore.TrailFor(ctx, policyID)
}

// GetAvailableTransitions returns the transitions legal from the policy's
// current status.
func (o *Orchestrator) GetAvailableTransitions(ctx context.Context, policyID string) ([]transition.Transition, error) {
	p, err := o.repository.Get(ctx, policyID)
	if err != nil {
		return nil, err
	}
	return o.engine.ValidTransitions(p.Status), nil
}

// generatePolicyNumber produces a human-readable policy number such as
// POL-2026-1A2B3C4D.
func generatePolicyNumber() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a uuid fragment; rand.Read failing means the
		// system entropy source is broken.
		return fmt.Sprintf("POL-%d-%s", time.Now().Year(),
			strings.ToUpper(uuid.New().String()[:8]))
	}
	return fmt.Sprintf("POL-%d-%s", time.Now().Year(),
		strings.ToUpper(hex.EncodeToString(b)))
}
