package queue

import (
	"context"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// fakeMsg is a minimal jetstream.Msg stand-in for unit tests that don't
// need a live broker. Every broker-facing call just records that it
// happened.
type fakeMsg struct {
	data        []byte
	headers     nats.Header
	numDelivered uint64

	acked       *bool
	naked       *bool
	nakDelay    *time.Duration
	termed      *bool
	inProgress  *int
}

func (f fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: f.numDelivered}, nil
}

func (f fakeMsg) Data() []byte          { return f.data }
func (f fakeMsg) Headers() nats.Header  { return f.headers }
func (f fakeMsg) Subject() string       { return "test.subject" }
func (f fakeMsg) Reply() string         { return "" }

func (f fakeMsg) Ack() error {
	if f.acked != nil {
		*f.acked = true
	}
	return nil
}

func (f fakeMsg) DoubleAck(ctx context.Context) error { return f.Ack() }

func (f fakeMsg) Nak() error {
	if f.naked != nil {
		*f.naked = true
	}
	return nil
}

func (f fakeMsg) NakWithDelay(delay time.Duration) error {
	if f.naked != nil {
		*f.naked = true
	}
	if f.nakDelay != nil {
		*f.nakDelay = delay
	}
	return nil
}

func (f fakeMsg) InProgress() error {
	if f.inProgress != nil {
		*f.inProgress++
	}
	return nil
}

func (f fakeMsg) Term() error {
	if f.termed != nil {
		*f.termed = true
	}
	return nil
}

func (f fakeMsg) TermWithReason(reason string) error { return f.Term() }
