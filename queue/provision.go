package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// provisionStreams idempotently ensures the three priority streams and the
// DLQ stream (if enabled) exist, along with one durable pull consumer per
// priority stream. Safe to call from multiple storage instances sharing a
// namespace: CreateOrUpdateStream/Consumer converge on the same config.
func provisionStreams(ctx context.Context, js jetstream.JetStream, cfg *Config) error {
	for _, p := range priorityOrder {
		streamCfg := jetstream.StreamConfig{
			Name:      p.streamName(cfg.Namespace),
			Subjects:  []string{p.subject(cfg.Namespace)},
			Retention: jetstream.WorkQueuePolicy,
			Storage:   jetstream.FileStorage,
			Replicas:  cfg.NumReplicas,
			Discard:   jetstream.DiscardOld,
		}

		stream, err := js.CreateOrUpdateStream(ctx, streamCfg)
		if err != nil {
			return newError(KindJetStream, "provision_stream", fmt.Errorf("%s: %w", streamCfg.Name, err))
		}

		consumerCfg := jetstream.ConsumerConfig{
			Durable:       p.streamName(cfg.Namespace) + "_consumer",
			Description:   "priority pull consumer for " + p.String(),
			AckPolicy:     jetstream.AckExplicitPolicy,
			AckWait:       cfg.AckWait,
			MaxDeliver:    cfg.MaxDeliver,
			MaxAckPending: cfg.MaxAckPending,
			DeliverPolicy: jetstream.DeliverAllPolicy,
			FilterSubject: p.subject(cfg.Namespace),
			Replicas:      cfg.NumReplicas,
		}

		if _, err := stream.CreateOrUpdateConsumer(ctx, consumerCfg); err != nil {
			return newError(KindJetStream, "provision_consumer", fmt.Errorf("%s: %w", consumerCfg.Durable, err))
		}
	}

	if cfg.EnableDLQ {
		dlqCfg := jetstream.StreamConfig{
			Name:      cfg.Namespace + "_dlq",
			Subjects:  []string{cfg.Namespace + ".dlq"},
			Retention: jetstream.LimitsPolicy,
			Storage:   jetstream.FileStorage,
			Replicas:  cfg.NumReplicas,
			Discard:   jetstream.DiscardOld,
			MaxAge:    30 * 24 * time.Hour,
		}
		if _, err := js.CreateOrUpdateStream(ctx, dlqCfg); err != nil {
			return newError(KindJetStream, "provision_dlq_stream", err)
		}
	}

	return nil
}

// consumerFor returns the durable pull consumer for a priority, assuming
// provisionStreams has already run.
func consumerFor(ctx context.Context, js jetstream.JetStream, cfg *Config, p Priority) (jetstream.Consumer, error) {
	c, err := js.Consumer(ctx, p.streamName(cfg.Namespace), p.streamName(cfg.Namespace)+"_consumer")
	if err != nil {
		return nil, newError(KindJetStream, "lookup_consumer", err)
	}
	return c, nil
}
