package queue

import (
	"errors"
	"fmt"
)

// Kind classifies a queue error so callers (and the ack coordinator) can
// branch on cause without string matching.
type Kind int

const (
	// KindClient covers broker connectivity/transport failures.
	KindClient Kind = iota
	// KindJetStream covers stream/consumer provisioning and publish-ack failures.
	KindJetStream
	// KindCodec covers JSON encode/decode failures.
	KindCodec
	// KindStorage covers ack/nak/term operation failures.
	KindStorage
	// KindUnsupported is returned by scheduling operations.
	KindUnsupported
	// KindAlreadyFinalized is returned by ack/nack/term after a terminal call.
	KindAlreadyFinalized
)

func (k Kind) String() string {
	switch k {
	case KindClient:
		return "client"
	case KindJetStream:
		return "jetstream"
	case KindCodec:
		return "codec"
	case KindStorage:
		return "storage"
	case KindUnsupported:
		return "unsupported"
	case KindAlreadyFinalized:
		return "already_finalized"
	default:
		return "unknown"
	}
}

// Error is the error type returned across the queue package's public API.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("queue: %s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("queue: %s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// ErrAlreadyFinalized is returned by Ack/Nack/Term once a terminal
// decision has already been recorded for a Context.
var ErrAlreadyFinalized = newError(KindAlreadyFinalized, "context", errors.New("message already finalized"))

// ErrSchedulingUnsupported is returned by ScheduleRequest/Reschedule: pull
// consumers have no native per-message delay.
var ErrSchedulingUnsupported = newError(KindUnsupported, "schedule", errors.New("delayed scheduling is not supported by this backend"))

// IsKind reports whether err (or any error it wraps) carries the given Kind.
func IsKind(err error, kind Kind) bool {
	var qerr *Error
	if errors.As(err, &qerr) {
		return qerr.Kind == kind
	}
	return false
}

// AbortError marks a handler failure as non-transient: the ack coordinator
// routes it straight to the DLQ (or Term, if DLQ is disabled) without
// waiting for delivery exhaustion.
type AbortError struct {
	Err error
}

func Abort(err error) *AbortError {
	return &AbortError{Err: err}
}

func (a *AbortError) Error() string {
	if a.Err == nil {
		return "aborted"
	}
	return "aborted: " + a.Err.Error()
}

func (a *AbortError) Unwrap() error { return a.Err }

// IsAbort reports whether err is (or wraps) an *AbortError.
func IsAbort(err error) bool {
	var ab *AbortError
	return errors.As(err, &ab)
}
