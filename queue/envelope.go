package queue

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// Job is the wire envelope for a single task. ID is assigned once at
// enqueue time and never rewritten. Attempt is informational only: the
// broker's reported delivery count, not this field, drives retry/DLQ
// decisions (see Context.DeliveredCount).
type Job[T any] struct {
	ID           string            `json:"id"`
	Payload      T                 `json:"payload"`
	Attempt      int               `json:"attempt"`
	TraceContext map[string]string `json:"trace_context,omitempty"`
	EnqueuedAt   time.Time         `json:"enqueued_at"`
}

func newJob[T any](payload T) Job[T] {
	return Job[T]{
		ID:         newJobID(),
		Payload:    payload,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
}

// newJobID returns a time-sortable, lexicographically unique identifier.
func newJobID() string {
	return ulid.Make().String()
}
