// Package archive implements the optional Postgres DLQ archiver: a
// separate consumer on the {namespace}.dlq stream that persists
// dead-letter records for durable, queryable history beyond the broker's
// own stream retention. It never participates in the core ack/DLQ-then-ack
// ordering invariant — it observes already-published DLQ records.
package archive

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/quietstack/jetqueue/queue"
)

// Archiver subscribes to a namespace's DLQ stream with its own durable
// consumer and writes each record to Postgres.
type Archiver struct {
	js        jetstream.JetStream
	repo      *DLQRecordsRepository
	namespace string
	consumer  jetstream.Consumer
}

// NewArchiver provisions (idempotently) a durable pull consumer on
// {namespace}.dlq and binds it to repo.
func NewArchiver(ctx context.Context, js jetstream.JetStream, repo *DLQRecordsRepository, namespace string) (*Archiver, error) {
	streamName := namespace + "_dlq"

	stream, err := js.Stream(ctx, streamName)
	if err != nil {
		return nil, err
	}

	consumer, err := stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       "dlq_archiver",
		Description:   "durable archiver of dead-letter records to postgres",
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: namespace + ".dlq",
	})
	if err != nil {
		return nil, err
	}

	return &Archiver{js: js, repo: repo, namespace: namespace, consumer: consumer}, nil
}

// Run fetches DLQ records in small batches and persists them until ctx is
// canceled. A record that fails to parse is logged and Term'd rather than
// retried forever; a record that fails to insert is Nak'd so the broker
// redelivers it.
func (a *Archiver) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		batch, err := a.consumer.Fetch(10, jetstream.FetchMaxWait(500*time.Millisecond))
		if err != nil {
			log.Printf("jetqueue/archive: fetch error: %v", err)
			continue
		}

		for msg := range batch.Messages() {
			a.handle(ctx, msg)
		}
	}
}

func (a *Archiver) handle(ctx context.Context, msg jetstream.Msg) {
	var rec queue.DLQRecord
	if err := json.Unmarshal(msg.Data(), &rec); err != nil {
		log.Printf("jetqueue/archive: malformed dlq record, terminating: %v", err)
		_ = msg.Term()
		return
	}

	if err := a.repo.Insert(ctx, rec); err != nil {
		log.Printf("jetqueue/archive: insert failed for task %s, nak for retry: %v", rec.OriginalTaskID, err)
		_ = msg.Nak()
		return
	}

	_ = msg.Ack()
}
