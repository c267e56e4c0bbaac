package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/notification"
	"github.com/felixgeelhaar/lifecycle-go/infrastructure/logging"
)

// WebhookNotifierConfig configures the webhook notifier.
type WebhookNotifierConfig struct {
	// Endpoints are the webhook endpoints to notify.
	Endpoints []*notification.Endpoint
	// SenderConfig configures the HTTP sender.
	SenderConfig SenderConfig
	// GlobalFilter is applied to all events before endpoint filters.
	GlobalFilter notification.EventFilter
}

// DefaultWebhookNotifierConfig returns sensible defaults.
func DefaultWebhookNotifierConfig() WebhookNotifierConfig {
	return WebhookNotifierConfig{
		SenderConfig: DefaultSenderConfig(),
	}
}

// WebhookNotifier delivers state-change events to configured webhook
// endpoints.
type WebhookNotifier struct {
	config    WebhookNotifierConfig
	endpoints []*notification.Endpoint
	sender    *Sender
	closed    bool
	mu        sync.RWMutex
}

// NewWebhookNotifier creates a new webhook notifier.
func NewWebhookNotifier(config WebhookNotifierConfig) *WebhookNotifier {
	return &WebhookNotifier{
		config:    config,
		endpoints: config.Endpoints,
		sender:    NewSender(config.SenderConfig),
	}
}

// Notify sends an event to all enabled endpoints whose filters pass.
// Delivery continues past per-endpoint failures; the first error is
// returned after all endpoints have been attempted.
func (w *WebhookNotifier) Notify(ctx context.Context, event audit.StateChangeEvent) error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return notification.ErrNotifierClosed
	}
	endpoints := make([]*notification.Endpoint, len(w.endpoints))
	copy(endpoints, w.endpoints)
	w.mu.RUnlock()

	if w.config.GlobalFilter != nil && !w.config.GlobalFilter(event) {
		return nil
	}

	var errs []error
	for _, ep := range endpoints {
		if !ep.Enabled {
			continue
		}
		if ep.Filter != nil && !ep.Filter(event) {
			continue
		}

		if err := w.sender.Send(ctx, ep, event); err != nil {
			logging.Warn().
				Add(logging.Component("webhook-notifier")).
				Add(logging.Endpoint(ep.URL)).
				Add(logging.PolicyID(event.PolicyID)).
				Add(logging.ErrorField(err)).
				Msg("webhook delivery failed")
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// AddEndpoint adds a new endpoint to the notifier.
func (w *WebhookNotifier) AddEndpoint(endpoint *notification.Endpoint) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.endpoints = append(w.endpoints, endpoint)
}

// RemoveEndpoint removes an endpoint by URL.
func (w *WebhookNotifier) RemoveEndpoint(url string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	filtered := make([]*notification.Endpoint, 0, len(w.endpoints))
	for _, ep := range w.endpoints {
		if ep.URL != url {
			filtered = append(filtered, ep)
		}
	}
	w.endpoints = filtered
}

// Close marks the notifier closed.
func (w *WebhookNotifier) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

var _ notification.Notifier = (*WebhookNotifier)(nil)
