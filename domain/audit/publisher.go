package audit

import "context"

// Publisher forwards state-change events to an external delivery mechanism.
// The core has no knowledge of subscribers; the concrete transport is an
// implementation detail outside this package.
type Publisher interface {
	// Publish forwards a state-change event.
	Publish(ctx context.Context, event StateChangeEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}

// NopPublisher discards events. Used as the default when no notification
// collaborator is configured.
type NopPublisher struct{}

// Publish discards the event.
func (NopPublisher) Publish(ctx context.Context, event StateChangeEvent) error { return nil }

// Close is a no-op.
func (NopPublisher) Close() error { return nil }

var _ Publisher = NopPublisher{}
