package logging

import (
	"time"

	"github.com/felixgeelhaar/bolt/v3"

	"github.com/felixgeelhaar/lifecycle-go/domain/policy"
)

// Field is a function that applies structured data to a log event.
type Field func(*bolt.Event) *bolt.Event

// Common field constructors for lifecycle logging.

// PolicyID adds a policy ID field.
func PolicyID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("policy_id", id)
	}
}

// PolicyNumber adds a policy number field.
func PolicyNumber(number string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("policy_number", number)
	}
}

// Status adds a status field.
func Status(s policy.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("status", string(s))
	}
}

// FromStatus adds a from_status field for transitions.
func FromStatus(s policy.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("from_status", string(s))
	}
}

// ToStatus adds a to_status field for transitions.
func ToStatus(s policy.Status) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("to_status", string(s))
	}
}

// ActionField adds an action field.
func ActionField(a policy.Action) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("action", string(a))
	}
}

// Role adds a role field.
func Role(role string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("role", role)
	}
}

// UserID adds a user ID field.
func UserID(id string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("user_id", id)
	}
}

// Reason adds a reason field.
func Reason(reason string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("reason", reason)
	}
}

// Duration adds a duration field in milliseconds.
func Duration(d time.Duration) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int64("duration_ms", d.Milliseconds())
	}
}

// ErrorField adds an error field.
func ErrorField(err error) Field {
	return func(e *bolt.Event) *bolt.Event {
		if err == nil {
			return e
		}
		return e.Err(err)
	}
}

// ErrorCode adds a stable machine-readable error code field.
func ErrorCode(code string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("error_code", code)
	}
}

// Component adds a component field for categorization.
func Component(name string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("component", name)
	}
}

// Operation adds an operation field.
func Operation(op string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("operation", op)
	}
}

// Endpoint adds a notification endpoint field.
func Endpoint(url string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str("endpoint", url)
	}
}

// Count adds a count field.
func Count(n int) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Int("count", n)
	}
}

// Str adds a string field with custom key.
func Str(key, value string) Field {
	return func(e *bolt.Event) *bolt.Event {
		return e.Str(key, value)
	}
}
