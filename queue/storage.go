package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Storage is the public facade the worker framework drives. It owns the
// broker connection and the three priority consumers; in-flight message
// contexts borrow messages from it but the ack coordinator is the only
// thing that applies terminal decisions.
type Storage[T any] struct {
	cfg         *Config
	nc          *nats.Conn
	js          jetstream.JetStream
	consumers   map[Priority]jetstream.Consumer
	tracer      *tracePropagator
	coordinator *ackCoordinator
}

// QueueInfo is a best-effort, non-transactional snapshot of queue depth.
type QueueInfo struct {
	Pending        map[Priority]int
	AckPending     map[Priority]int
	DLQPending     int
	StreamsHealthy bool
}

// Delivery pairs a decoded job with the context a handler uses to report
// its outcome back to the ack coordinator.
type Delivery[T any] struct {
	Job Job[T]
	Ctx *Context
}

// NewStorage connects to the broker at url, provisions the priority and
// DLQ streams (idempotent), and looks up their pull consumers.
func NewStorage[T any](ctx context.Context, url string, cfg *Config) (*Storage[T], error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	nc, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				natsDisconnectsTotal.Inc()
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			natsReconnectsTotal.Inc()
		}),
	)
	if err != nil {
		return nil, newError(KindClient, "connect", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, newError(KindJetStream, "jetstream_init", err)
	}

	if err := provisionStreams(ctx, js, cfg); err != nil {
		nc.Close()
		return nil, err
	}

	consumers := make(map[Priority]jetstream.Consumer, len(priorityOrder))
	for _, p := range priorityOrder {
		c, err := consumerFor(ctx, js, cfg, p)
		if err != nil {
			nc.Close()
			return nil, err
		}
		consumers[p] = c
	}

	return &Storage[T]{
		cfg:       cfg,
		nc:        nc,
		js:        js,
		consumers: consumers,
		tracer:    newTracePropagator(cfg.EnableTracing),
	}, nil
}

// Push enqueues payload at the default (Medium) priority.
func (s *Storage[T]) Push(ctx context.Context, payload T) (string, error) {
	return s.PushWithPriority(ctx, payload, DefaultPriority)
}

// PushWithPriority enqueues payload on the requested priority stream,
// awaiting broker publish acknowledgement before returning.
func (s *Storage[T]) PushWithPriority(ctx context.Context, payload T, p Priority) (string, error) {
	job := newJob(payload)

	headers := make(nats.Header)
	if s.tracer.enabled() {
		job.TraceContext = s.tracer.inject(ctx, headers)
	}

	data, err := json.Marshal(job)
	if err != nil {
		return "", newError(KindCodec, "push_marshal", err)
	}

	msg := &nats.Msg{
		Subject: p.subject(s.cfg.Namespace),
		Data:    data,
		Header:  headers,
	}

	if _, err := s.js.PublishMsg(ctx, msg); err != nil {
		return "", newError(KindClient, "push_publish", err)
	}

	jobsPushedTotal.WithLabelValues(p.String()).Inc()
	return job.ID, nil
}

// Poll is the entry point the worker framework invokes to obtain a stream
// of (job, context) pairs. It spawns the ack coordinator and the priority
// poller, both bound to ctx; canceling ctx stops new fetches and drains
// the ack coordinator's buffered decisions before it exits.
func (s *Storage[T]) Poll(ctx context.Context, workerID string) <-chan Delivery[T] {
	log.Printf("jetqueue: worker %s starting poll on namespace %s", workerID, s.cfg.Namespace)

	s.coordinator = newAckCoordinator(s.js, s.cfg)
	go s.coordinator.run(ctx)

	p := newPoller[T](s.cfg, s.consumers)
	go p.run(ctx)

	return p.out
}

// Report submits a handler outcome to the ack coordinator. Must only be
// called after Poll has been started; blocks if the coordinator's channel
// is full.
func (s *Storage[T]) Report(d Decision) {
	s.coordinator.Submit(d)
}

// ScheduleRequest is unsupported: pull consumers have no native per-message
// delay.
func (s *Storage[T]) ScheduleRequest(ctx context.Context, payload T, at time.Time) (string, error) {
	return "", ErrSchedulingUnsupported
}

// Reschedule is unsupported for the same reason as ScheduleRequest.
func (s *Storage[T]) Reschedule(ctx context.Context, taskID string, at time.Time) error {
	return ErrSchedulingUnsupported
}

// QueueInfo returns a best-effort snapshot of per-priority pending counts
// and DLQ depth, derived from broker-reported consumer/stream info.
func (s *Storage[T]) QueueInfo(ctx context.Context) (QueueInfo, error) {
	info := QueueInfo{
		Pending:        make(map[Priority]int, len(priorityOrder)),
		AckPending:     make(map[Priority]int, len(priorityOrder)),
		StreamsHealthy: true,
	}

	for _, p := range priorityOrder {
		ci, err := s.consumers[p].Info(ctx)
		if err != nil {
			info.StreamsHealthy = false
			continue
		}
		info.Pending[p] = int(ci.NumPending)
		info.AckPending[p] = ci.NumAckPending
		queueDepth.WithLabelValues(p.String()).Set(float64(ci.NumPending))
		queueAckPending.WithLabelValues(p.String()).Set(float64(ci.NumAckPending))
	}

	if s.cfg.EnableDLQ {
		stream, err := s.js.Stream(ctx, s.cfg.Namespace+"_dlq")
		if err != nil {
			info.StreamsHealthy = false
		} else if si, err := stream.Info(ctx); err == nil {
			info.DLQPending = int(si.State.Msgs)
		}
	}

	return info, nil
}

// Close drains the underlying connection. Callers should cancel the
// context passed to Poll first so the poller and ack coordinator have a
// chance to finish in-flight work.
func (s *Storage[T]) Close() error {
	return s.nc.Drain()
}
