package queue

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/quietstack/jetqueue/tracing"
)

// Context is the per-message handle a worker handler owns for the
// duration of processing. It is created by the poller and destroyed once
// an ack decision is emitted for it. Exactly one of Ack/Nack/Term may
// complete; every call after the first returns ErrAlreadyFinalized.
type Context struct {
	msg          jetstream.Msg
	priority     Priority
	attempt      int
	deliveredCnt int
	traceContext map[string]string
	envelope     []byte
	taskID       string
	finalized    atomic.Bool
}

func newContext(msg jetstream.Msg, priority Priority, taskID string, attempt int, traceContext map[string]string, envelope []byte) *Context {
	deliveredCnt := 1
	if meta, err := msg.Metadata(); err == nil && meta != nil {
		deliveredCnt = int(meta.NumDelivered)
	}
	return &Context{
		msg:          msg,
		priority:     priority,
		taskID:       taskID,
		attempt:      attempt,
		deliveredCnt: deliveredCnt,
		traceContext: traceContext,
		envelope:     envelope,
	}
}

// TaskID is the envelope's id, stable across redeliveries.
func (c *Context) TaskID() string { return c.taskID }

// Priority reports which stream this message was fetched from.
func (c *Context) Priority() Priority { return c.priority }

// Attempt is the envelope's own (informational) attempt counter.
func (c *Context) Attempt() int { return c.attempt }

// DeliveredCount is the broker-reported delivery count, authoritative for
// retry/DLQ decisions.
func (c *Context) DeliveredCount() int { return c.deliveredCnt }

// TraceContext returns the propagation headers captured at enqueue time,
// or nil if tracing was disabled or absent.
func (c *Context) TraceContext() map[string]string { return c.traceContext }

// Progress extends the processing lease by ack_wait. Idempotent and safe
// to call repeatedly; has no effect once a terminal decision has landed.
func (c *Context) Progress() error {
	if c.finalized.Load() {
		return nil
	}
	if err := c.msg.InProgress(); err != nil {
		return newError(KindStorage, "progress", err)
	}
	return nil
}

// Ack finalizes the message as successfully processed.
func (c *Context) Ack() error {
	if !c.finalized.CompareAndSwap(false, true) {
		return ErrAlreadyFinalized
	}
	if err := c.msg.Ack(); err != nil {
		return newError(KindStorage, "ack", err)
	}
	return nil
}

// Nack requests redelivery after delay.
func (c *Context) Nack(delay time.Duration) error {
	if !c.finalized.CompareAndSwap(false, true) {
		return ErrAlreadyFinalized
	}
	var err error
	if delay > 0 {
		err = c.msg.NakWithDelay(delay)
	} else {
		err = c.msg.Nak()
	}
	if err != nil {
		return newError(KindStorage, "nack", err)
	}
	return nil
}

// Term abandons the message permanently: the broker will not redeliver it.
func (c *Context) Term() error {
	if !c.finalized.CompareAndSwap(false, true) {
		return ErrAlreadyFinalized
	}
	if err := c.msg.Term(); err != nil {
		return newError(KindStorage, "term", err)
	}
	return nil
}

// ExtractedContext returns a context.Context carrying the propagated
// trace, preferring broker message headers over the envelope's own
// trace_context field. The worker framework binds its handler span to the
// returned context so the trace graph is continuous from enqueue to
// handle.
func (c *Context) ExtractedContext(ctx context.Context) context.Context {
	headers := make(map[string]string)
	for k := range c.msg.Headers() {
		headers[k] = c.msg.Headers().Get(k)
	}
	return tracing.Extract(ctx, headers, c.traceContext)
}
