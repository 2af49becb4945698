package signvault

import (
	"context"
	"errors"

	"github.com/himanishpuri/SignVault/pkg/signvault/broadcast"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrDecode         = errors.New("decode error")
	ErrNotFound       = errors.New("not found")
	ErrStorageFailure = errors.New("storage failure")
)

// Kind is the stable, wire-facing name of an error class.
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindDecode         Kind = "decode_error"
	KindNotFound       Kind = "not_found"
	KindStorageFailure Kind = "storage_failure"
	KindSlowConsumer   Kind = "slow_consumer"
	KindInternal       Kind = "internal"
)

// Error carries a client-safe Reason alongside its class and cause.
// errors.Is matches both Class and Err.
type Error struct {
	Class  error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Class, e.Err}
	}
	return []error{e.Class}
}

func newError(class error, reason string, cause error) *Error {
	return &Error{Class: class, Reason: reason, Err: cause}
}

// KindOf classifies err. Timeouts count as storage failures since they can
// only occur while waiting on a backend. It returns "" for nil.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrStorageFailure),
		errors.Is(err, context.DeadlineExceeded):
		return KindStorageFailure
	case errors.Is(err, broadcast.ErrSlowConsumer):
		return KindSlowConsumer
	default:
		return KindInternal
	}
}

// ReasonOf returns the client-safe message for err.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err == nil {
		return ""
	}
	return "internal error"
}
