package event

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/lifecycle-go/domain/audit"
	"github.com/felixgeelhaar/lifecycle-go/domain/notification"
	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// stubNotifier records delivered events and optionally fails.
type stubNotifier struct {
	mu       sync.Mutex
	events   []audit.StateChangeEvent
	err      error
	closed   bool
	received chan struct{}
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{received: make(chan struct{}, 16)}
}

func (s *stubNotifier) Notify(_ context.Context, event audit.StateChangeEvent) error {
	s.mu.Lock()
	s.events = append(s.events, event)
	s.mu.Unlock()
	s.received <- struct{}{}
	return s.err
}

func (s *stubNotifier) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubNotifier) delivered() []audit.StateChangeEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]audit.StateChangeEvent, len(s.events))
	copy(out, s.events)
	return out
}

func sampleEvent() audit.StateChangeEvent {
	return audit.StateChangeEvent{
		PolicyID:       "pol-1",
		PreviousStatus: policy.StatusDraft,
		NewStatus:      policy.StatusPending,
		Action:         policy.ActionSubmitForApproval,
		TransitionedBy: "user-1",
		Timestamp:      time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestFanoutPublisher_PublishSync(t *testing.T) {
	t.Parallel()

	first := newStubNotifier()
	second := newStubNotifier()
	pub := NewFanoutPublisher([]notification.Notifier{first, second})

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, n := range []*stubNotifier{first, second} {
		got := n.delivered()
		if len(got) != 1 {
			t.Fatalf("delivered %d events, want 1", len(got))
		}
		if got[0].PolicyID != "pol-1" || got[0].NewStatus != policy.StatusPending {
			t.Errorf("delivered event = %+v, want pol-1 -> PENDING", got[0])
		}
	}
}

func TestFanoutPublisher_SyncErrorsJoined(t *testing.T) {
	t.Parallel()

	failing := newStubNotifier()
	failing.err = notification.ErrEndpointRejected
	healthy := newStubNotifier()

	pub := NewFanoutPublisher([]notification.Notifier{failing, healthy})

	err := pub.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, notification.ErrEndpointRejected) {
		t.Fatalf("Publish() error = %v, want ErrEndpointRejected", err)
	}

	// The failing notifier must not prevent delivery to the others.
	if len(healthy.delivered()) != 1 {
		t.Errorf("healthy notifier delivered %d events, want 1", len(healthy.delivered()))
	}
}

func TestFanoutPublisher_AsyncDelivery(t *testing.T) {
	t.Parallel()

	n := newStubNotifier()
	pub := NewFanoutPublisher([]notification.Notifier{n}, WithAsyncDelivery())

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-n.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async delivery")
	}
}

func TestFanoutPublisher_AsyncSwallowsErrors(t *testing.T) {
	t.Parallel()

	n := newStubNotifier()
	n.err = errors.New("delivery failed")
	pub := NewFanoutPublisher([]notification.Notifier{n}, WithAsyncDelivery())

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Errorf("async Publish() error = %v, want nil", err)
	}

	select {
	case <-n.received:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for async delivery")
	}
}

func TestFanoutPublisher_Subscribe(t *testing.T) {
	t.Parallel()

	pub := NewFanoutPublisher(nil)

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() with no notifiers error = %v", err)
	}

	n := newStubNotifier()
	pub.Subscribe(n)

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if len(n.delivered()) != 1 {
		t.Errorf("subscribed notifier delivered %d events, want 1", len(n.delivered()))
	}
}

func TestFanoutPublisher_Close(t *testing.T) {
	t.Parallel()

	n := newStubNotifier()
	pub := NewFanoutPublisher([]notification.Notifier{n}, WithAsyncDelivery())

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Close waits for in-flight deliveries before closing notifiers.
	if len(n.delivered()) != 1 {
		t.Errorf("delivered %d events before Close returned, want 1", len(n.delivered()))
	}

	n.mu.Lock()
	closed := n.closed
	n.mu.Unlock()
	if !closed {
		t.Error("Close() did not close the notifier")
	}

	if err := pub.Publish(context.Background(), sampleEvent()); !errors.Is(err, notification.ErrNotifierClosed) {
		t.Errorf("Publish() after Close error = %v, want ErrNotifierClosed", err)
	}

	if err := pub.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
