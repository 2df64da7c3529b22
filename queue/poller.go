package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// poller is the single long-running activity that cascades High, Medium,
// Low, restarting from High the moment any fetch returns a message so a
// busy higher priority can never be starved of attention by a lower one.
// It never reorders within a priority and never blocks on ack handling.
type poller[T any] struct {
	cfg       *Config
	consumers map[Priority]jetstream.Consumer
	out       chan Delivery[T]
}

// newPoller builds a poller bound to consumers. Trace context extraction
// happens lazily per-delivery via Context.ExtractedContext rather than
// eagerly here, so the poller itself has no tracing dependency.
func newPoller[T any](cfg *Config, consumers map[Priority]jetstream.Consumer) *poller[T] {
	return &poller[T]{
		cfg:       cfg,
		consumers: consumers,
		out:       make(chan Delivery[T], cfg.BatchSize),
	}
}

// run drives the cascade until ctx is canceled. Each pass starts at High;
// the instant a fetch returns at least one message, the pass restarts from
// High again instead of continuing on to Medium/Low, so a busy High stream
// is re-attended immediately and Medium/Low are only ever touched once High
// (and then Medium) have nothing waiting. Already-emitted deliveries are
// left for their handlers to finish; run stops issuing new fetches and
// closes out once the context is done.
func (p *poller[T]) run(ctx context.Context) {
	defer close(p.out)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		restarted := false
		for _, priority := range priorityOrder {
			n := p.sweepOne(ctx, priority)
			if ctx.Err() != nil {
				return
			}
			if n > 0 {
				restarted = true
				break
			}
		}
		if restarted {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.cfg.IdleSleep):
		}
	}
}

// sweepOne fetches up to BatchSize messages from a single priority's
// consumer with a bounded wait, decodes them, and emits them downstream in
// arrival order. Returns the number of messages emitted.
func (p *poller[T]) sweepOne(ctx context.Context, priority Priority) int {
	consumer := p.consumers[priority]

	batch, err := consumer.Fetch(p.cfg.BatchSize, jetstream.FetchMaxWait(p.cfg.FetchExpiry))
	if err != nil {
		log.Printf("jetqueue: fetch error on %s: %v", priority, err)
		return 0
	}

	count := 0
	for msg := range batch.Messages() {
		count++
		jobsPolledTotal.WithLabelValues(priority.String()).Inc()
		p.handleMessage(ctx, priority, msg)
	}
	if err := batch.Error(); err != nil && err != jetstream.ErrNoMessages {
		log.Printf("jetqueue: batch error on %s: %v", priority, err)
	}

	return count
}

// handleMessage decodes a single raw message into a Job and emits the
// (job, context) pair. A malformed payload is Term'd immediately so one
// poison message can never block the consumer.
func (p *poller[T]) handleMessage(ctx context.Context, priority Priority, msg jetstream.Msg) {
	var job Job[T]
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		log.Printf("jetqueue: poison message on %s, terminating: %v", priority, err)
		if termErr := msg.Term(); termErr != nil {
			log.Printf("jetqueue: term failed for poison message on %s: %v", priority, termErr)
		}
		return
	}

	mctx := newContext(msg, priority, job.ID, job.Attempt, job.TraceContext, msg.Data())

	select {
	case p.out <- Delivery[T]{Job: job, Ctx: mctx}:
	case <-ctx.Done():
	}
}
