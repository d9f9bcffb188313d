// File: internal/resilience/errors.go
package resilience

import (
	"context"
	"errors"
	"fmt"
)

// Kind is the closed taxonomy of failure classes. Every fallible operation in
// the agent maps its errors into exactly one Kind so that retry and
// circuit-breaking decisions are made on semantics, not on string matching.
type Kind string

const (
	// KindConnection covers transport-level failures (browser websocket
	// dropped, DNS, refused connections). Retryable.
	KindConnection Kind = "CONNECTION"
	// KindTimeout covers deadline expiries on an otherwise healthy
	// dependency. Retryable.
	KindTimeout Kind = "TIMEOUT"
	// KindElementNotFound is raised only after the resolution engine has
	// exhausted every strategy. Retrying an exhausted strategy set is
	// meaningless, so this kind is never retried.
	KindElementNotFound Kind = "ELEMENT_NOT_FOUND"
	// KindNavigation covers failed page loads and bad URLs.
	KindNavigation Kind = "NAVIGATION"
	// KindSecurity covers policy violations (blocked domains, disallowed
	// schemes). Always fatal.
	KindSecurity Kind = "SECURITY"
	// KindGeneric is the fallback for unclassified failures.
	KindGeneric Kind = "GENERIC"
)

// Error tags an underlying failure with its taxonomy kind and the operation
// that produced it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError creates a taxonomy error with a formatted message and no cause.
func NewError(kind Kind, op string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WrapError tags an existing error with a kind. A nil err returns nil.
func WrapError(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the taxonomy kind from err. Untagged errors classify as
// KindGeneric, except context deadline expiries which classify as
// KindTimeout so that plain chromedp/HTTP timeouts behave correctly.
func KindOf(err error) Kind {
	if err == nil {
		return KindGeneric
	}
	var te *Error
	if errors.As(err, &te) {
		return te.Kind
	}
	if isDeadline(err) {
		return KindTimeout
	}
	return KindGeneric
}

func isDeadline(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	type timeouter interface{ Timeout() bool }
	var t timeouter
	return errors.As(err, &t) && t.Timeout()
}

// KindSet is a membership set over taxonomy kinds.
type KindSet map[Kind]struct{}

// NewKindSet builds a set from the given kinds.
func NewKindSet(kinds ...Kind) KindSet {
	s := make(KindSet, len(kinds))
	for _, k := range kinds {
		s[k] = struct{}{}
	}
	return s
}

// Contains reports whether k is a member.
func (s KindSet) Contains(k Kind) bool {
	_, ok := s[k]
	return ok
}

// DefaultRetryable is the standard retryable set: transient transport and
// deadline failures only. ElementNotFound and Security are deliberately
// excluded (terminal by definition).
func DefaultRetryable() KindSet {
	return NewKindSet(KindConnection, KindTimeout)
}
