// Package notification provides the contract for delivering state-change
// events to external subscribers.
package notification

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
)

// Domain errors for notification operations.
var (
	// ErrEndpointUnavailable indicates the webhook endpoint is not reachable.
	ErrEndpointUnavailable = errors.New("webhook endpoint unavailable")

	// ErrEndpointRejected indicates the endpoint rejected the notification.
	ErrEndpointRejected = errors.New("webhook endpoint rejected notification")

	// ErrNotifierClosed indicates the notifier has been closed.
	ErrNotifierClosed = errors.New("notifier is closed")

	// ErrInvalidEndpoint indicates the endpoint configuration is invalid.
	ErrInvalidEndpoint = errors.New("invalid endpoint configuration")
)

// Notifier delivers state-change events to an external destination.
type Notifier interface {
	// Notify sends a state-change event.
	Notify(ctx context.Context, event audit.StateChangeEvent) error

	// Close releases any resources held by the notifier.
	Close() error
}

// EventFilter decides whether an event should be delivered.
type EventFilter func(event audit.StateChangeEvent) bool

// FilterByNewStatus returns a filter that only allows events landing in the
// given statuses.
func FilterByNewStatus(statuses ...string) EventFilter {
	set := make(map[string]bool)
	for _, s := range statuses {
		set[s] = true
	}
	return func(event audit.StateChangeEvent) bool {
		return set[string(event.NewStatus)]
	}
}

// FilterByPolicyID returns a filter that only allows events for specific
// policies.
func FilterByPolicyID(policyIDs ...string) EventFilter {
	set := make(map[string]bool)
	for _, id := range policyIDs {
		set[id] = true
	}
	return func(event audit.StateChangeEvent) bool {
		return set[event.PolicyID]
	}
}

// CombineFilters returns a filter that requires all provided filters to pass.
func CombineFilters(filters ...EventFilter) EventFilter {
	return func(event audit.StateChangeEvent) bool {
		for _, f := range filters {
			if !f(event) {
				return false
			}
		}
		return true
	}
}

// Endpoint represents a webhook endpoint configuration.
type Endpoint struct {
	// URL is the webhook endpoint URL.
	URL string `json:"url"`
	// Secret is the shared secret for HMAC signing.
	Secret string `json:"secret,omitempty"`
	// Headers are additional HTTP headers to include.
	Headers map[string]string `json:"headers,omitempty"`
	// Filter is an optional event filter for this endpoint.
	Filter EventFilter `json:"-"`
	// Enabled indicates if this endpoint is active.
	Enabled bool `json:"enabled"`
	// Name is an optional friendly name for the endpoint.
	Name string `json:"name,omitempty"`
}
