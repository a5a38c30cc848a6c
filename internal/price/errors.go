package price

import (
	"errors"
	"fmt"
)

// Kind classifies an Error the way callers are expected to switch on.
type Kind int

const (
	// InvalidArgument means a required parameter was missing, empty
	// where non-empty is required, or nil where a value was required.
	InvalidArgument Kind = iota
	// IllegalState means the operation targeted a batch that does not
	// exist, is not in the state the operation requires, or the
	// service itself is in an incompatible state (e.g. id collision).
	IllegalState
	// NotFound is reserved for lookups that raise rather than return
	// a missing entry. The batch/service lookups in this package do
	// not use it; it exists so the taxonomy stays stable across future
	// operations that do.
	NotFound
	// Internal means an invariant was violated that should be
	// unreachable in a correct implementation.
	Internal
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case IllegalState:
		return "IllegalState"
	case NotFound:
		return "NotFound"
	case Internal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the structured error type returned by every price-service
// operation. Callers distinguish failure modes via Kind rather than
// string-matching the message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds an *Error with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of err if it is (or wraps) a *Error, and
// false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
