package queue

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// DLQReason classifies why a message was routed to the dead-letter stream.
type DLQReason string

const (
	ReasonAbort      DLQReason = "abort_error"
	ReasonMaxDeliver DLQReason = "max_deliver_exceeded"
)

// DLQRecord is the JSON object published on {namespace}.dlq. Payload holds
// the original envelope bytes verbatim so an operator can replay the job
// by re-publishing Payload to the appropriate priority subject.
type DLQRecord struct {
	OriginalTaskID string    `json:"original_task_id"`
	Error          string    `json:"error"`
	Attempts       string    `json:"attempts"`
	DeliveredCount int       `json:"delivered_count"`
	Timestamp      time.Time `json:"timestamp"`
	DLQReason      DLQReason `json:"dlq_reason"`
	Payload        []byte    `json:"payload"`
}

func buildDLQRecord(taskID string, cause error, deliveredCount int, reason DLQReason, envelope []byte) DLQRecord {
	return DLQRecord{
		OriginalTaskID: taskID,
		Error:          cause.Error(),
		Attempts:       fmtAttempts(deliveredCount),
		DeliveredCount: deliveredCount,
		Timestamp:      time.Now().UTC(),
		DLQReason:      reason,
		Payload:        envelope,
	}
}

func fmtAttempts(deliveredCount int) string {
	if deliveredCount <= 1 {
		return "1 attempt"
	}
	return strconv.Itoa(deliveredCount) + " attempts"
}

// publishDLQ marshals and publishes rec to {namespace}.dlq, awaiting
// durable broker acknowledgement. Callers must not Ack the source message
// until this returns nil (see the ack coordinator's DLQ-then-ack
// ordering).
func publishDLQ(ctx context.Context, js jetstream.JetStream, namespace string, rec DLQRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return newError(KindCodec, "dlq_marshal", err)
	}
	if _, err := js.Publish(ctx, namespace+".dlq", data); err != nil {
		return newError(KindJetStream, "dlq_publish", err)
	}
	return nil
}
