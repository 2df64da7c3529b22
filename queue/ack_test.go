package queue

import (
	"context"
	"testing"
	"time"
)

func TestAckCoordinatorAcksOnSuccess(t *testing.T) {
	acked := false
	msg := fakeMsg{acked: &acked}
	c := newContext(msg, Medium, "01H", 1, nil, []byte("{}"))

	coord := &ackCoordinator{cfg: DefaultConfig()}
	coord.apply(context.Background(), Decision{Ctx: c, Err: nil})

	if !acked {
		t.Error("expected Ack on successful decision")
	}
}

func TestAckCoordinatorNaksTransientUnderBudget(t *testing.T) {
	naked := false
	var delay time.Duration
	msg := fakeMsg{naked: &naked, nakDelay: &delay, numDelivered: 1}
	c := newContext(msg, Low, "01H", 1, nil, []byte("{}"))

	cfg := DefaultConfig()
	cfg.MaxDeliver = 5
	cfg.NakBackoff = []time.Duration{2 * time.Second}

	coord := &ackCoordinator{cfg: cfg}
	coord.apply(context.Background(), Decision{Ctx: c, Err: assertErr("transient")})

	if !naked {
		t.Error("expected Nak for a transient failure under max_deliver")
	}
	if delay != 2*time.Second {
		t.Errorf("expected backoff delay 2s, got %v", delay)
	}
}

func TestAckCoordinatorTermsOnMaxDeliverWithDLQDisabled(t *testing.T) {
	termed := false
	msg := fakeMsg{termed: &termed, numDelivered: 5}
	c := newContext(msg, Low, "01H", 5, nil, []byte("{}"))

	cfg := DefaultConfig()
	cfg.MaxDeliver = 5
	cfg.EnableDLQ = false

	coord := &ackCoordinator{cfg: cfg}
	coord.apply(context.Background(), Decision{Ctx: c, Err: assertErr("still failing")})

	if !termed {
		t.Error("expected Term when delivery count reaches max_deliver and DLQ is disabled")
	}
}

func TestAckCoordinatorTermsOnAbortWithDLQDisabled(t *testing.T) {
	termed := false
	msg := fakeMsg{termed: &termed, numDelivered: 1}
	c := newContext(msg, High, "01H", 1, nil, []byte("{}"))

	cfg := DefaultConfig()
	cfg.EnableDLQ = false

	coord := &ackCoordinator{cfg: cfg}
	coord.apply(context.Background(), Decision{Ctx: c, Err: Abort(assertErr("bad input"))})

	if !termed {
		t.Error("expected Term on abort when DLQ is disabled")
	}
}

func TestAckCoordinatorNaksEscalateWithDeliveredCountNotAttempt(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDeliver = 5
	cfg.NakBackoff = []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}
	coord := &ackCoordinator{cfg: cfg}

	// The envelope's own Attempt field is always 1 (set once at enqueue and
	// never rewritten on redelivery); only the broker's delivered count
	// should drive which backoff tier is chosen.
	for deliveredCount, want := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 500 * time.Millisecond,
	} {
		naked := false
		var delay time.Duration
		msg := fakeMsg{naked: &naked, nakDelay: &delay, numDelivered: uint64(deliveredCount)}
		c := newContext(msg, Low, "01H", 1, nil, []byte("{}"))

		coord.apply(context.Background(), Decision{Ctx: c, Err: assertErr("transient")})

		if !naked {
			t.Fatalf("delivered count %d: expected Nak", deliveredCount)
		}
		if delay != want {
			t.Errorf("delivered count %d: expected backoff %v, got %v", deliveredCount, want, delay)
		}
	}
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
