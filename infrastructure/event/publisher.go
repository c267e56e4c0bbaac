// Package event provides the state-change event publishing infrastructure.
package event

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/notification"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/logging"
)

// FanoutPublisher implements audit.Publisher by delivering each
// state-change event to every registered notifier.
type FanoutPublisher struct {
	notifiers []notification.Notifier
	async     bool
	wg        sync.WaitGroup
	mu        sync.RWMutex
	closed    bool
}

// FanoutOption configures the publisher.
type FanoutOption func(*FanoutPublisher)

// WithAsyncDelivery delivers events in a goroutine per publish, so slow
// notifiers never block the transition path. Close waits for in-flight
// deliveries.
func WithAsyncDelivery() FanoutOption {
	return func(p *FanoutPublisher) {
		p.async = true
	}
}

// NewFanoutPublisher creates a publisher over the given notifiers.
func NewFanoutPublisher(notifiers []notification.Notifier, opts ...FanoutOption) *FanoutPublisher {
	p := &FanoutPublisher{
		notifiers: notifiers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish forwards the event to every notifier. In synchronous mode the
// first delivery error is returned after all notifiers have been
// attempted; in async mode failures are logged.
func (p *FanoutPublisher) Publish(ctx context.Context, event audit.StateChangeEvent) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return notification.ErrNotifierClosed
	}
	notifiers := make([]notification.Notifier, len(p.notifiers))
	copy(notifiers, p.notifiers)
	p.mu.RUnlock()

	if p.async {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			// The transition has already committed; deliver with a
			// background context so caller cancellation does not drop
			// the notification.
			if err := deliver(context.Background(), notifiers, event); err != nil {
				logging.Warn().
					Add(logging.Component("event-publisher")).
					Add(logging.PolicyID(event.PolicyID)).
					Add(logging.ErrorField(err)).
					Msg("async event delivery failed")
			}
		}()
		return nil
	}

	return deliver(ctx, notifiers, event)
}

func deliver(ctx context.Context, notifiers []notification.Notifier, event audit.StateChangeEvent) error {
	var errs []error
	for _, n := range notifiers {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers an additional notifier.
func (p *FanoutPublisher) Subscribe(n notification.Notifier) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifiers = append(p.notifiers, n)
}

// Close waits for in-flight async deliveries and closes all notifiers.
func (p *FanoutPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	notifiers := p.notifiers
	p.mu.Unlock()

	p.wg.Wait()

	var errs []error
	for _, n := range notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ audit.Publisher = (*FanoutPublisher)(nil)
