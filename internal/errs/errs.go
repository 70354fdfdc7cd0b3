package errs

import (
	"errors"
	"fmt"
)

// Kind is the closed set of failure categories. The queue's retry policy and
// the resolver's "empty but valid" contract branch on Kind, never on message
// text.
type Kind int

const (
	KindValidation Kind = iota // rejected at the boundary, never enqueued
	KindTransient              // retried under the queue backoff policy
	KindNotFound               // mapped to a zero-valued result by readers
	KindFatal                  // not retried, surfaced for operator action
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindFatal:
		return "fatal"
	}
	return "unknown"
}

// Error carries a Kind alongside a wrapped cause
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a kinded error without a cause
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a kinded error with a formatted message
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from err. Unclassified errors default to
// KindTransient so that unexpected storage failures stay retryable.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

// IsValidation reports whether err is a validation rejection
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsNotFound reports whether err is a not-found outcome
func IsNotFound(err error) bool {
	return err != nil && KindOf(err) == KindNotFound
}

// Retryable reports whether the queue should re-run a job that returned err
func Retryable(err error) bool {
	return err != nil && KindOf(err) == KindTransient
}
