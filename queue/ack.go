package queue

import (
	"context"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Decision pairs a fetched message's context with the handler's outcome.
// The worker framework's response path is the only producer onto the ack
// coordinator's channel; the coordinator is the only consumer.
type Decision struct {
	Ctx *Context
	Err error
}

// ackCoordinator owns the decision channel and applies the classification
// table: Ok -> Ack, Abort -> DLQ-then-Ack (or Term), transient-under-budget
// -> Nak(delay), transient-exhausted -> DLQ-then-Ack (or Term). It runs as
// its own goroutine so a slow broker ack can never block the poller.
type ackCoordinator struct {
	js     jetstream.JetStream
	cfg    *Config
	decide chan Decision
	done   chan struct{}
}

func newAckCoordinator(js jetstream.JetStream, cfg *Config) *ackCoordinator {
	return &ackCoordinator{
		js:     js,
		cfg:    cfg,
		decide: make(chan Decision, cfg.AckChannelSize),
		done:   make(chan struct{}),
	}
}

// Submit enqueues a decision for the coordinator. Blocks if the channel is
// full, applying backpressure to the caller rather than dropping work.
func (a *ackCoordinator) Submit(d Decision) {
	a.decide <- d
	ackCoordinatorQueueDepth.Set(float64(len(a.decide)))
}

// run drains the decision channel until ctx is canceled and the channel is
// empty; it never panics on a single decision.
func (a *ackCoordinator) run(ctx context.Context) {
	defer close(a.done)
	for {
		select {
		case d := <-a.decide:
			a.apply(ctx, d)
			ackCoordinatorQueueDepth.Set(float64(len(a.decide)))
		case <-ctx.Done():
			a.drain(ctx)
			return
		}
	}
}

// drain applies any decisions already buffered before the coordinator
// exits, so shutdown never silently loses a terminal outcome the framework
// already committed to.
func (a *ackCoordinator) drain(ctx context.Context) {
	for {
		select {
		case d := <-a.decide:
			a.apply(context.Background(), d)
		default:
			return
		}
	}
}

func (a *ackCoordinator) apply(ctx context.Context, d Decision) {
	c := d.Ctx
	priority := c.Priority().String()

	start := time.Now()
	outcome := "ack"
	defer func() {
		ackDecisionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}()

	switch {
	case d.Err == nil:
		if err := c.Ack(); err != nil {
			log.Printf("jetqueue: ack failed for %s: %v", c.TaskID(), err)
			return
		}
		jobsAckedTotal.WithLabelValues(priority).Inc()

	case IsAbort(d.Err):
		outcome = "dlq_abort"
		a.routeToDLQ(ctx, c, d.Err, ReasonAbort)

	case c.DeliveredCount() >= a.cfg.MaxDeliver:
		outcome = "dlq_exhausted"
		a.routeToDLQ(ctx, c, d.Err, ReasonMaxDeliver)

	default:
		outcome = "nak"
		delay := a.cfg.backoffFor(c.DeliveredCount())
		if err := c.Nack(delay); err != nil {
			log.Printf("jetqueue: nak failed for %s: %v", c.TaskID(), err)
			return
		}
		jobsNakedTotal.WithLabelValues(priority).Inc()
	}
}

// routeToDLQ publishes the DLQ record and awaits durable broker
// acknowledgement before acking the source message. If the DLQ publish
// fails, the source message is left un-acked so broker redelivery
// re-enters this path; the routing itself is at-least-once.
func (a *ackCoordinator) routeToDLQ(ctx context.Context, c *Context, cause error, reason DLQReason) {
	priority := c.Priority().String()

	if !a.cfg.EnableDLQ {
		if err := c.Term(); err != nil {
			log.Printf("jetqueue: term failed for %s: %v", c.TaskID(), err)
		} else {
			jobsTerminatedTotal.WithLabelValues(priority).Inc()
		}
		return
	}

	rec := buildDLQRecord(c.TaskID(), cause, c.DeliveredCount(), reason, c.envelope)
	if err := publishDLQ(ctx, a.js, a.cfg.Namespace, rec); err != nil {
		log.Printf("jetqueue: dlq publish failed for %s, leaving unacked for redelivery: %v", c.TaskID(), err)
		return
	}

	if err := c.Ack(); err != nil {
		log.Printf("jetqueue: ack-after-dlq failed for %s: %v", c.TaskID(), err)
		return
	}
	jobsDLQedTotal.WithLabelValues(priority, string(reason)).Inc()
}
