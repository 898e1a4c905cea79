package generator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies generation failures.
type Kind int

const (
	// KindTransient: rate limit, timeout, overload. Retried.
	KindTransient Kind = iota + 1
	// KindUpstream: the call itself was rejected (auth, bad request).
	KindUpstream
	// KindMalformed: the call succeeded but the response has the wrong shape.
	KindMalformed
	// KindUnknownIdentity: a profile or persona id missing from the registry.
	KindUnknownIdentity
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient upstream error"
	case KindUpstream:
		return "upstream error"
	case KindMalformed:
		return "malformed response"
	case KindUnknownIdentity:
		return "unknown identity"
	default:
		return "generation error"
	}
}

var (
	// ErrNonText is returned when the first response block is not plain text.
	ErrNonText = errors.New("unexpected non-text response")
	// ErrMissingFields is returned when the editorial JSON lacks a required field.
	ErrMissingFields = errors.New("missing required fields in editor response")
)

// Error carries the Kind of a failure through wrapping.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 if err is not a generation error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

// IsTransient reports whether err should be retried. Unclassified errors are
// judged by their message the way upstream SDKs phrase overload signals.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if k := KindOf(err); k != 0 {
		return k == KindTransient
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return transientMessage(err.Error())
}

func transientMessage(msg string) bool {
	msg = strings.ToLower(msg)
	return strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "overloaded")
}

func unknownIdentity(op, id string) error {
	return &Error{Kind: KindUnknownIdentity, Op: op, Err: fmt.Errorf("%q is not registered", id)}
}
