// Package lock provides per-policy serialization primitives.
//
// The orchestrator requires at most one transition in flight per policy at
// a time; transitions on different policies proceed fully in parallel.
package lock

import (
	"context"
	"errors"
	"time"
)

// Errors shared by locker implementations.
var (
	// ErrLockNotHeld is returned when releasing a lock the caller does
	// not hold.
	ErrLockNotHeld = errors.New("lock not held")

	// ErrInvalidTTL is returned for non-positive TTLs.
	ErrInvalidTTL = errors.New("invalid TTL")
)

// PolicyLocker serializes work per policy key.
type PolicyLocker interface {
	// WithLock executes fn while holding the lock for key. The lock is
	// held only for the duration of fn; callers keep fn to the logical
	// decide-and-write step so unrelated work is never serialized.
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// Option configures lock acquisition behavior for distributed lockers.
type Option func(*options)

type options struct {
	ttl           time.Duration
	retryInterval time.Duration
}

func defaultOptions() *options {
	return &options{
		ttl:           10 * time.Second,
		retryInterval: 25 * time.Millisecond,
	}
}

// WithTTL sets the lock TTL for distributed lockers.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithRetryInterval sets the interval between acquisition retries.
func WithRetryInterval(interval time.Duration) Option {
	return func(o *options) {
		o.retryInterval = interval
	}
}
